// Package account holds the account model and its SQLite store.
//
// The dispatch core only reads an account's tier and testing-mode flag;
// everything else about account management belongs to the surrounding
// application. Source is the boundary the dispatcher consumes.
package account

import (
	"context"
	"errors"
	"time"
)

// Account is the caller identity the dispatcher works with.
type Account struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tier        string    `json:"tier"`
	TestingMode bool      `json:"testing_mode"`
	CreatedAt   time.Time `json:"created_at"`
}

// Source resolves a caller's account. The dispatcher depends on this
// abstraction, not on the concrete store.
type Source interface {
	Get(ctx context.Context, accountID string) (Account, error)
}

// ErrNotFound is returned when an account id does not exist.
var ErrNotFound = errors.New("account: not found")
