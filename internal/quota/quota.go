// Package quota implements the gate that allows or denies a mutating
// action against the caller's tier limits and current usage.
//
// Check is a pure function: it reads the inputs it is handed and holds
// no locks. The dispatcher is responsible for running it (and the
// subsequent usage recording) under the account's ledger lock so the
// check-then-record sequence is atomic.
//
// This is the only quota implementation in the repository. Transport
// layers must call through the dispatcher rather than shadowing limit
// numbers of their own.
package quota

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/ledger"
	"github.com/atelierhq/atelier/internal/tier"
)

// Reason identifies which dimension triggered a denial.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonProjectLimit      Reason = "project_limit"
	ReasonCollaboratorLimit Reason = "collaborator_limit"
	ReasonActionLimit       Reason = "action_limit"
	ReasonStorageLimit      Reason = "storage_limit"
)

// Delta describes the resources a single action wants to consume.
// Dimensions the action does not touch stay zero. ProjectID scopes the
// collaborator dimension.
type Delta struct {
	Actions       int64
	Projects      int64
	Collaborators int64
	StorageBytes  int64
	ProjectID     string
}

// Decision is the gate's verdict. On denial it always names the
// triggering dimension with its current and limit values, so callers
// can render an actionable upgrade prompt without re-querying usage.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  Reason     `json:"reason"`
	Current int64      `json:"current"`
	Limit   tier.Limit `json:"limit"`
}

// Message renders the decision for an end user.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonOK:
		return "allowed"
	case ReasonProjectLimit:
		return fmt.Sprintf("project limit reached (%d of %s)", d.Current, d.Limit)
	case ReasonCollaboratorLimit:
		return fmt.Sprintf("collaborator limit reached (%d of %s per project)", d.Current, d.Limit)
	case ReasonActionLimit:
		return fmt.Sprintf("monthly action limit reached (%d of %s)", d.Current, d.Limit)
	case ReasonStorageLimit:
		return fmt.Sprintf("storage limit reached (%s of %s)",
			humanize.IBytes(uint64(d.Current)), d.Limit.Bytes())
	default:
		return string(d.Reason)
	}
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonOK}
}

func deny(reason Reason, current int64, limit tier.Limit) Decision {
	return Decision{Allowed: false, Reason: reason, Current: current, Limit: limit}
}

// Check evaluates the requested delta against the account's limits and
// current usage.
//
// Testing-mode accounts pass unconditionally — an intentional,
// documented escape hatch, regardless of how far over every limit the
// counters already are.
//
// Each dimension with a positive requested delta is checked in a fixed
// order (projects, collaborators, actions, storage); the first one that
// would strictly exceed its limit denies. Landing exactly on the limit
// is allowed.
func Check(acct account.Account, limits tier.Limits, usage ledger.Counters, delta Delta) Decision {
	if acct.TestingMode {
		return allow()
	}

	if delta.Projects > 0 {
		if want := usage.ProjectsOwned + delta.Projects; !limits.MaxProjects.Allows(want) {
			return deny(ReasonProjectLimit, usage.ProjectsOwned, limits.MaxProjects)
		}
	}

	if delta.Collaborators > 0 {
		current := usage.Collaborators(delta.ProjectID)
		if want := current + delta.Collaborators; !limits.MaxCollaboratorsPerProject.Allows(want) {
			return deny(ReasonCollaboratorLimit, current, limits.MaxCollaboratorsPerProject)
		}
	}

	if delta.Actions > 0 {
		if want := usage.ActionsThisPeriod + delta.Actions; !limits.MaxActionsPerMonth.Allows(want) {
			return deny(ReasonActionLimit, usage.ActionsThisPeriod, limits.MaxActionsPerMonth)
		}
	}

	if delta.StorageBytes > 0 {
		if want := usage.StorageBytesUsed + delta.StorageBytes; !limits.MaxStorageBytes.Allows(want) {
			return deny(ReasonStorageLimit, usage.StorageBytesUsed, limits.MaxStorageBytes)
		}
	}

	return allow()
}
