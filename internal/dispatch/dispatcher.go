package dispatch

import (
	"context"

	"cdr.dev/slog/v3"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/ledger"
	"github.com/atelierhq/atelier/internal/quota"
	"github.com/atelierhq/atelier/internal/tier"
)

// Dispatcher is the core entry point. One Dispatch call walks the
// state machine:
//
//	RECEIVED → unknown action? NOT_FOUND
//	         → classified read|mutating
//	         → mutating: quota gate → denied? DENIED
//	         → handler invoked → failure? HANDLER_ERROR
//	         → mutating success: record action + resource deltas
//	         → SUCCESS
//
// Every terminal state produces exactly one Result. The dispatcher
// never retries a handler.
type Dispatcher struct {
	registry *Registry
	accounts account.Source
	tiers    *tier.Catalog
	usage    *ledger.Ledger
	logger   slog.Logger
}

// New creates a Dispatcher. The registry must already be verified.
func New(registry *Registry, accounts account.Source, tiers *tier.Catalog, usage *ledger.Ledger, logger slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		accounts: accounts,
		tiers:    tiers,
		usage:    usage,
		logger:   logger,
	}
}

// Dispatch runs one action to a terminal state.
//
// For mutating actions the quota check, handler invocation, and usage
// recording all run under the caller's account lock: two concurrent
// mutating actions on one account near a quota boundary can never both
// pass the check. Read actions take no lock and are never counted.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) Result {
	handler, ok := d.registry.Lookup(action.Kind)
	if !ok {
		return Result{Status: StatusNotFound, Err: &ActionNotFoundError{Kind: action.Kind}}
	}

	acct, err := d.accounts.Get(ctx, action.AccountID)
	if err != nil {
		return d.handlerError(ctx, action.Kind, err)
	}

	if action.Kind.Classification() == ClassRead {
		return d.invoke(ctx, handler, acct, action)
	}

	limits, err := d.tiers.LimitsFor(acct.Tier)
	if err != nil {
		// An unknown tier is a configuration bug; fail this request
		// rather than defaulting to any tier's limits.
		return d.handlerError(ctx, action.Kind, err)
	}

	cost := handler.Cost(action.Payload)
	cost.Actions = 1

	var result Result
	lockErr := d.usage.Locked(acct.ID, func(la ledger.Account) error {
		counters, err := la.Read(ctx)
		if err != nil {
			result = d.handlerError(ctx, action.Kind, err)
			return nil
		}

		decision := quota.Check(acct, limits, counters, cost)
		if !decision.Allowed {
			d.logger.Info(ctx, "action denied by quota gate",
				slog.F("action", action.Kind),
				slog.F("account_id", acct.ID),
				slog.F("reason", decision.Reason),
				slog.F("current", decision.Current),
				slog.F("limit", decision.Limit.String()),
			)
			result = Result{Status: StatusDenied, Err: &QuotaExceededError{Decision: decision}}
			return nil
		}

		result = d.invoke(ctx, handler, acct, action)
		if result.Status != StatusSuccess {
			return nil
		}

		if err := d.record(ctx, la, result); err != nil {
			d.logger.Error(ctx, "usage recording failed after successful handler",
				slog.F("action", action.Kind),
				slog.F("account_id", acct.ID),
				slog.Error(err),
			)
		}
		return nil
	})
	if lockErr != nil {
		return d.handlerError(ctx, action.Kind, lockErr)
	}
	return result
}

// invoke runs the handler and normalizes its outcome. On success the
// Result carries the Outcome so record can apply its deltas.
func (d *Dispatcher) invoke(ctx context.Context, handler Handler, acct account.Account, action Action) Result {
	outcome, err := handler.Handle(ctx, acct, action.Payload)
	if err != nil {
		return d.handlerError(ctx, action.Kind, err)
	}
	if outcome == nil {
		outcome = &Outcome{}
	}
	return Result{Status: StatusSuccess, Payload: outcome.Payload, Err: nil, outcome: outcome}
}

// record applies the action count and the handler's reported resource
// deltas. The account lock is already held.
func (d *Dispatcher) record(ctx context.Context, la ledger.Account, result Result) error {
	if err := la.RecordAction(ctx); err != nil {
		return err
	}

	delta := result.outcome.Delta
	if delta.StorageBytes != 0 {
		if err := la.RecordStorageDelta(ctx, delta.StorageBytes); err != nil {
			return err
		}
	}
	if delta.Projects != 0 {
		if err := la.RecordProjectDelta(ctx, delta.Projects); err != nil {
			return err
		}
	}
	if delta.Collaborators != 0 {
		if err := la.RecordCollaboratorDelta(ctx, delta.ProjectID, delta.Collaborators); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) handlerError(ctx context.Context, kind Kind, err error) Result {
	retryable := knowledge.IsRetryable(err)
	d.logger.Warn(ctx, "action failed",
		slog.F("action", kind),
		slog.F("retryable", retryable),
		slog.Error(err),
	)
	return Result{
		Status: StatusHandlerError,
		Err:    &HandlerError{Kind: kind, Retryable: retryable, Err: err},
	}
}
