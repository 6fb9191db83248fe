// Package ledger tracks per-account usage counters: actions this billing
// period, storage bytes, owned projects, and collaborators per project.
//
// Counters are durable in SQLite and roll over lazily: the first read
// after the period boundary resets the action count and advances the
// boundary by whole months. There is no background timer.
//
// Concurrency: every operation on one account runs under that account's
// mutex, so a read-check-record sequence wrapped in Locked is atomic as
// a unit. Accounts never contend with each other. Only the dispatcher
// mutates counters; capability handlers must not touch this package.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Counters is the post-rollover view of one account's usage.
type Counters struct {
	AccountID               string           `json:"account_id"`
	ActionsThisPeriod       int64            `json:"actions_this_period"`
	PeriodResetAt           time.Time        `json:"period_reset_at"`
	StorageBytesUsed        int64            `json:"storage_bytes_used"`
	ProjectsOwned           int64            `json:"projects_owned"`
	CollaboratorsPerProject map[string]int64 `json:"collaborators_per_project,omitempty"`
}

// Collaborators returns the collaborator count for a project. A project
// absent from the map counts as zero.
func (c Counters) Collaborators(projectID string) int64 {
	return c.CollaboratorsPerProject[projectID]
}

// Ledger is the SQLite-backed usage ledger.
type Ledger struct {
	db *sql.DB

	// Clock is injectable for rollover tests; defaults to the real clock.
	Clock quartz.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New prepares the ledger tables on the shared database handle.
func New(handle *sql.DB) (*Ledger, error) {
	l := &Ledger{
		db:    handle,
		Clock: quartz.NewReal(),
		locks: make(map[string]*sync.Mutex),
	}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("ledger: migration: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_counters (
			account_id          TEXT PRIMARY KEY,
			actions_this_period INTEGER NOT NULL DEFAULT 0,
			period_reset_at     TEXT    NOT NULL,
			storage_bytes_used  INTEGER NOT NULL DEFAULT 0,
			projects_owned      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS collaborator_counts (
			account_id    TEXT NOT NULL,
			project_id    TEXT NOT NULL,
			collaborators INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (account_id, project_id)
		);

		CREATE INDEX IF NOT EXISTS idx_collab_account ON collaborator_counts(account_id);
	`)
	return err
}

// lockFor returns the mutex serializing operations for one account.
func (l *Ledger) lockFor(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.locks[accountID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[accountID] = mu
	}
	return mu
}

// Locked runs fn while holding accountID's mutex. The dispatcher uses
// this to make quota check, handler invocation, and usage recording one
// atomic unit — without it two concurrent mutating actions near a quota
// boundary could both pass the check.
func (l *Ledger) Locked(accountID string, fn func(Account) error) error {
	mu := l.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()
	return fn(Account{ledger: l, accountID: accountID})
}

// Read returns the account's counters after lazy rollover.
func (l *Ledger) Read(ctx context.Context, accountID string) (Counters, error) {
	var c Counters
	err := l.Locked(accountID, func(a Account) error {
		var err error
		c, err = a.Read(ctx)
		return err
	})
	return c, err
}

// Account is a handle to one account's counters with its mutex already
// held. Valid only inside the Locked callback that produced it.
type Account struct {
	ledger    *Ledger
	accountID string
}

// Read loads the counters, applying the monthly rollover if the current
// time has crossed the reset boundary. Rollover is idempotent: repeated
// reads past the boundary reset exactly once.
func (a Account) Read(ctx context.Context) (Counters, error) {
	l := a.ledger
	now := l.Clock.Now().UTC()

	c := Counters{AccountID: a.accountID}
	var resetAt string
	err := l.db.QueryRowContext(ctx, `
		SELECT actions_this_period, period_reset_at, storage_bytes_used, projects_owned
		FROM usage_counters WHERE account_id = ?
	`, a.accountID).Scan(&c.ActionsThisPeriod, &resetAt, &c.StorageBytesUsed, &c.ProjectsOwned)

	switch {
	case err == sql.ErrNoRows:
		// First sighting of this account: start a fresh period.
		c.PeriodResetAt = now.AddDate(0, 1, 0)
		_, err = l.db.ExecContext(ctx, `
			INSERT INTO usage_counters (account_id, actions_this_period, period_reset_at, storage_bytes_used, projects_owned)
			VALUES (?, 0, ?, 0, 0)
		`, a.accountID, c.PeriodResetAt.Format(time.RFC3339))
		if err != nil {
			return Counters{}, fmt.Errorf("ledger: init counters: %w", err)
		}
	case err != nil:
		return Counters{}, fmt.Errorf("ledger: read counters: %w", err)
	default:
		c.PeriodResetAt, err = time.Parse(time.RFC3339, resetAt)
		if err != nil {
			return Counters{}, fmt.Errorf("ledger: parse reset time %q: %w", resetAt, err)
		}
		if !now.Before(c.PeriodResetAt) {
			// Advance by whole months until the boundary is in the
			// future again, so a long-idle account catches up in one
			// read without drifting to "now + 1 month".
			next := c.PeriodResetAt
			for !now.Before(next) {
				next = next.AddDate(0, 1, 0)
			}
			c.ActionsThisPeriod = 0
			c.PeriodResetAt = next
			_, err = l.db.ExecContext(ctx, `
				UPDATE usage_counters SET actions_this_period = 0, period_reset_at = ?
				WHERE account_id = ?
			`, next.Format(time.RFC3339), a.accountID)
			if err != nil {
				return Counters{}, fmt.Errorf("ledger: rollover: %w", err)
			}
		}
	}

	collabs, err := a.collaborators(ctx)
	if err != nil {
		return Counters{}, err
	}
	c.CollaboratorsPerProject = collabs
	return c, nil
}

func (a Account) collaborators(ctx context.Context) (map[string]int64, error) {
	rows, err := a.ledger.db.QueryContext(ctx, `
		SELECT project_id, collaborators FROM collaborator_counts WHERE account_id = ?
	`, a.accountID)
	if err != nil {
		return nil, fmt.Errorf("ledger: read collaborators: %w", err)
	}
	defer rows.Close()

	m := make(map[string]int64)
	for rows.Next() {
		var projectID string
		var n int64
		if err := rows.Scan(&projectID, &n); err != nil {
			return nil, fmt.Errorf("ledger: scan collaborators: %w", err)
		}
		m[projectID] = n
	}
	return m, rows.Err()
}

// RecordAction increments the period action count by one. The ledger
// trusts the dispatcher to call this exactly once per successful
// mutating action.
func (a Account) RecordAction(ctx context.Context) error {
	_, err := a.ledger.db.ExecContext(ctx, `
		UPDATE usage_counters SET actions_this_period = actions_this_period + 1
		WHERE account_id = ?
	`, a.accountID)
	if err != nil {
		return fmt.Errorf("ledger: record action: %w", err)
	}
	return nil
}

// RecordStorageDelta adjusts storage usage. Delta may be negative; the
// stored value is floored at zero.
func (a Account) RecordStorageDelta(ctx context.Context, deltaBytes int64) error {
	_, err := a.ledger.db.ExecContext(ctx, `
		UPDATE usage_counters
		SET storage_bytes_used = MAX(0, storage_bytes_used + ?)
		WHERE account_id = ?
	`, deltaBytes, a.accountID)
	if err != nil {
		return fmt.Errorf("ledger: record storage delta: %w", err)
	}
	return nil
}

// RecordProjectDelta adjusts the owned-project count.
func (a Account) RecordProjectDelta(ctx context.Context, delta int64) error {
	_, err := a.ledger.db.ExecContext(ctx, `
		UPDATE usage_counters
		SET projects_owned = MAX(0, projects_owned + ?)
		WHERE account_id = ?
	`, delta, a.accountID)
	if err != nil {
		return fmt.Errorf("ledger: record project delta: %w", err)
	}
	return nil
}

// RecordCollaboratorDelta adjusts the collaborator count for one project.
func (a Account) RecordCollaboratorDelta(ctx context.Context, projectID string, delta int64) error {
	_, err := a.ledger.db.ExecContext(ctx, `
		INSERT INTO collaborator_counts (account_id, project_id, collaborators)
		VALUES (?, ?, MAX(0, ?))
		ON CONFLICT (account_id, project_id)
		DO UPDATE SET collaborators = MAX(0, collaborators + ?)
	`, a.accountID, projectID, delta, delta)
	if err != nil {
		return fmt.Errorf("ledger: record collaborator delta: %w", err)
	}
	return nil
}
