package teller

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract used by the core components. Lookup
// misses surface as the matching ErrXxxNotFound sentinel; conditional
// updates that match zero rows surface as the matching ErrXxxConflict
// sentinel so callers can fail loudly instead of losing the write.
type Store interface {
	// WithTx executes fn inside one storage transaction, rolling back when
	// fn returns an error.
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateUser(ctx context.Context, input UserInput) (User, error)
	GetUser(ctx context.Context, userID UserID) (User, error)

	CreateAccount(ctx context.Context, userID UserID, name string) (Account, error)
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	// GetOwnedAccount misses with ErrAccountNotFound unless the account
	// exists and belongs to userID.
	GetOwnedAccount(ctx context.Context, accountID AccountID, userID UserID) (Account, error)
	ListAccounts(ctx context.Context, userID UserID) ([]Account, error)
	// UpdateAccountBalance writes next only if the row still holds
	// previous; a zero-row match returns ErrBalanceConflict.
	UpdateAccountBalance(ctx context.Context, accountID AccountID, previous, next decimal.Decimal) error
	// MarkAccountClosed stamps closedAt only if the row is still open; a
	// zero-row match returns ErrCloseConflict.
	MarkAccountClosed(ctx context.Context, accountID AccountID, closedAt time.Time) error

	CreateLock(ctx context.Context, input LockInput) (Lock, error)
	GetLockByToken(ctx context.Context, token LockToken) (Lock, error)
	// ReleaseLock stamps releasedAt only if the row is still unreleased; a
	// zero-row match returns ErrReleaseConflict.
	ReleaseLock(ctx context.Context, token LockToken, releasedAt time.Time) error

	// InsertEntry returns ErrDuplicateIdempotencyKey when the unique key
	// constraint rejects the row.
	InsertEntry(ctx context.Context, input EntryInput) (Entry, error)
	GetEntryByIdempotencyKey(ctx context.Context, key IdempotencyKey) (Entry, error)
	ListEntries(ctx context.Context, accountID AccountID) ([]Entry, error)
}
