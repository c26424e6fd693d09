package teller

import "github.com/shopspring/decimal"

// LockStatus is the closed result of validating a lock token. The checks
// run in a fixed order: existence, ownership, released, expiry.
type LockStatus string

const (
	LockStatusValid    LockStatus = "is_valid"
	LockStatusNotFound LockStatus = "token_not_found"
	LockStatusInvalid  LockStatus = "token_invalid"
	LockStatusReleased LockStatus = "token_released"
	LockStatusExpired  LockStatus = "token_expired"
)

// String returns the status discriminant.
func (status LockStatus) String() string {
	return string(status)
}

// AcquireStatus is the closed result of acquiring a lock token.
type AcquireStatus string

const (
	AcquireStatusAcquired        AcquireStatus = "acquired"
	AcquireStatusAccountNotFound AcquireStatus = "account_not_found"
	AcquireStatusAccountClosed   AcquireStatus = "account_closed"
)

// String returns the status discriminant.
func (status AcquireStatus) String() string {
	return string(status)
}

// AcquireResult carries the issued token when Status is Acquired.
type AcquireResult struct {
	Status AcquireStatus
	Token  LockToken
}

// ReleaseStatus is the closed result of releasing a lock token. Releasing
// an already-released token reports Released, not an error.
type ReleaseStatus string

const (
	ReleaseStatusReleased        ReleaseStatus = "released"
	ReleaseStatusAccountNotFound ReleaseStatus = "account_not_found"
	ReleaseStatusTokenNotFound   ReleaseStatus = "token_not_found"
	ReleaseStatusTokenInvalid    ReleaseStatus = "token_invalid"
	ReleaseStatusFailed          ReleaseStatus = "failed"
)

// String returns the status discriminant.
func (status ReleaseStatus) String() string {
	return string(status)
}

// SubmitStatus is the closed result of recording a ledger entry.
type SubmitStatus string

const (
	SubmitStatusCreated       SubmitStatus = "created"
	SubmitStatusAlreadyExists SubmitStatus = "already_exists"
)

// String returns the status discriminant.
func (status SubmitStatus) String() string {
	return string(status)
}

// SubmitResult carries the stored entry. On AlreadyExists the entry is the
// original submission for that idempotency key.
type SubmitResult struct {
	Status SubmitStatus
	Entry  Entry
}

// AdjustStatus is the closed result of a balance adjustment.
type AdjustStatus string

const (
	AdjustStatusSuccess           AdjustStatus = "success"
	AdjustStatusInsufficientFunds AdjustStatus = "insufficient_funds"
	AdjustStatusAccountNotFound   AdjustStatus = "account_not_found"
	AdjustStatusAccountClosed     AdjustStatus = "account_closed"
	AdjustStatusFailed            AdjustStatus = "failed"
	AdjustStatusTokenNotFound     AdjustStatus = "token_not_found"
	AdjustStatusTokenInvalid      AdjustStatus = "token_invalid"
	AdjustStatusTokenReleased     AdjustStatus = "token_released"
	AdjustStatusTokenExpired      AdjustStatus = "token_expired"
)

// String returns the status discriminant.
func (status AdjustStatus) String() string {
	return string(status)
}

// AdjustResult pairs the status with the balance view the caller may show.
// Balance is nil for every status except Success (the persisted balance)
// and InsufficientFunds (the unchanged pre-mutation balance).
type AdjustResult struct {
	Status  AdjustStatus
	Balance *decimal.Decimal
}

// CloseStatus is the closed result of closing an account.
type CloseStatus string

const (
	CloseStatusSuccess         CloseStatus = "success"
	CloseStatusAccountNotFound CloseStatus = "account_not_found"
	CloseStatusAccountClosed   CloseStatus = "account_closed"
	CloseStatusFailed          CloseStatus = "failed"
	CloseStatusTokenNotFound   CloseStatus = "token_not_found"
	CloseStatusTokenInvalid    CloseStatus = "token_invalid"
	CloseStatusTokenReleased   CloseStatus = "token_released"
	CloseStatusTokenExpired    CloseStatus = "token_expired"
)

// String returns the status discriminant.
func (status CloseStatus) String() string {
	return string(status)
}

func adjustStatusForLock(status LockStatus) AdjustStatus {
	switch status {
	case LockStatusNotFound:
		return AdjustStatusTokenNotFound
	case LockStatusInvalid:
		return AdjustStatusTokenInvalid
	case LockStatusReleased:
		return AdjustStatusTokenReleased
	default:
		return AdjustStatusTokenExpired
	}
}

func closeStatusForLock(status LockStatus) CloseStatus {
	switch status {
	case LockStatusNotFound:
		return CloseStatusTokenNotFound
	case LockStatusInvalid:
		return CloseStatusTokenInvalid
	case LockStatusReleased:
		return CloseStatusTokenReleased
	default:
		return CloseStatusTokenExpired
	}
}
