package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the SQLite-backed account source. It satisfies Source.
type Store struct {
	db *sql.DB
}

// NewStore prepares the accounts table on the shared database handle.
func NewStore(handle *sql.DB) (*Store, error) {
	s := &Store{db: handle}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("account: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			tier         TEXT NOT NULL,
			testing_mode INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// Create registers a new account on the given tier. IDs come from the
// canonical uuid strategy shared by every entry point that creates records.
func (s *Store) Create(ctx context.Context, name, tierID string) (Account, error) {
	acct := Account{
		ID:        uuid.NewString(),
		Name:      name,
		Tier:      tierID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, tier, testing_mode, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, acct.ID, acct.Name, acct.Tier, acct.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Account{}, fmt.Errorf("account: create: %w", err)
	}
	return acct, nil
}

// Get returns the account for the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, accountID string) (Account, error) {
	var (
		acct      Account
		testing   int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, tier, testing_mode, created_at
		FROM accounts WHERE id = ?
	`, accountID).Scan(&acct.ID, &acct.Name, &acct.Tier, &testing, &createdAt)
	if err == sql.ErrNoRows {
		return Account{}, fmt.Errorf("account: get %q: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: get %q: %w", accountID, err)
	}

	acct.TestingMode = testing != 0
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		acct.CreatedAt = t
	}
	return acct, nil
}

// SetTier moves the account to another tier.
func (s *Store) SetTier(ctx context.Context, accountID, tierID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET tier = ? WHERE id = ?`, tierID, accountID)
	if err != nil {
		return fmt.Errorf("account: set tier: %w", err)
	}
	return requireOneRow(res, accountID)
}

// SetTestingMode flips the per-account quota bypass flag. The flag is
// persisted: it is the authoritative testing-mode signal, there is no
// environment-wide equivalent.
func (s *Store) SetTestingMode(ctx context.Context, accountID string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET testing_mode = ? WHERE id = ?`, v, accountID)
	if err != nil {
		return fmt.Errorf("account: set testing mode: %w", err)
	}
	return requireOneRow(res, accountID)
}

func requireOneRow(res sql.Result, accountID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account: update %q: %w", accountID, ErrNotFound)
	}
	return nil
}
