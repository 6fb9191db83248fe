// Package workspace holds collaborative projects and their phase
// pipeline. A project moves through a fixed sequence of phases
// (brief → draft → review → final); transitions are validated, never
// skipped, and final is terminal.
package workspace

import (
	"fmt"
	"time"
)

// Phase is a discrete stage in a project's lifecycle.
type Phase string

const (
	PhaseBrief  Phase = "brief"
	PhaseDraft  Phase = "draft"
	PhaseReview Phase = "review"
	PhaseFinal  Phase = "final"
)

// phaseOrder is the fixed pipeline sequence.
var phaseOrder = []Phase{PhaseBrief, PhaseDraft, PhaseReview, PhaseFinal}

// phaseIndex returns the ordinal position of p, or -1 if unknown.
func phaseIndex(p Phase) int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// ValidPhase reports whether p is a known phase.
func ValidPhase(p Phase) bool { return phaseIndex(p) >= 0 }

// NextPhase returns the phase after p. It validates the transition
// first: an unknown phase or the final phase cannot advance.
func NextPhase(p Phase) (Phase, error) {
	idx := phaseIndex(p)
	if idx < 0 {
		return "", fmt.Errorf("workspace: unknown phase %q", p)
	}
	if idx == len(phaseOrder)-1 {
		return "", fmt.Errorf("workspace: project already in final phase %q", p)
	}
	return phaseOrder[idx+1], nil
}

// Project is one collaborative workspace project.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Phase     Phase     `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Collaborator is an account invited into a project.
type Collaborator struct {
	ProjectID string    `json:"project_id"`
	AccountID string    `json:"account_id"`
	AddedAt   time.Time `json:"added_at"`
}
