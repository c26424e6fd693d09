package teller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockManager issues, validates, and releases per-account mutation locks.
// Tokens are advisory: they gate admission to the BalanceEngine but the
// storage layer's conditional writes carry the real exclusion guarantee.
type LockManager struct {
	store    Store
	nowFn    func() time.Time
	newToken func() string
	logger   OperationLogger
}

// LockManagerOption configures a LockManager instance.
type LockManagerOption func(*LockManager)

// WithLockLogger wires a logger that receives every lock operation.
func WithLockLogger(logger OperationLogger) LockManagerOption {
	return func(manager *LockManager) {
		manager.logger = logger
	}
}

// WithTokenSource overrides the token generator (tests).
func WithTokenSource(newToken func() string) LockManagerOption {
	return func(manager *LockManager) {
		if newToken != nil {
			manager.newToken = newToken
		}
	}
}

// NewLockManager wires a LockManager. Tokens default to random UUIDs.
func NewLockManager(store Store, now func() time.Time, options ...LockManagerOption) (*LockManager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidComponentConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidComponentConfig)
	}
	manager := &LockManager{store: store, nowFn: now, newToken: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	return manager, nil
}

// Acquire issues a fresh lock token on an open account owned by userID.
// Issuance is deliberately permissive: an existing active token on the
// same account does not block a new one, so two holders can race and the
// conditional balance write decides the winner.
func (manager *LockManager) Acquire(ctx context.Context, accountID AccountID, userID UserID) (AcquireResult, error) {
	result, operationError := manager.acquire(ctx, accountID, userID)
	logOperation(ctx, manager.logger, OperationLog{
		Operation: operationAcquire,
		AccountID: accountID,
		UserID:    userID,
		Token:     result.Token,
		Result:    result.Status.String(),
		Error:     operationError,
	})
	return result, operationError
}

func (manager *LockManager) acquire(ctx context.Context, accountID AccountID, userID UserID) (AcquireResult, error) {
	account, err := manager.store.GetOwnedAccount(ctx, accountID, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return AcquireResult{Status: AcquireStatusAccountNotFound}, nil
	}
	if err != nil {
		return AcquireResult{}, err
	}
	if !account.Open() {
		return AcquireResult{Status: AcquireStatusAccountClosed}, nil
	}
	token, err := NewLockToken(manager.newToken())
	if err != nil {
		return AcquireResult{}, err
	}
	lock, err := manager.store.CreateLock(ctx, LockInput{
		AccountID: accountID,
		UserID:    userID,
		Token:     token,
		Expiry:    manager.nowFn().Add(lockValidityWindow),
	})
	if err != nil {
		return AcquireResult{}, err
	}
	return AcquireResult{Status: AcquireStatusAcquired, Token: lock.Token}, nil
}

// Validate reports whether token is usable for (accountID, userID). The
// check order is fixed: existence, ownership, released, expiry. Expiry is
// evaluated lazily here; expired rows stay in the store until someone
// validates or releases them.
func (manager *LockManager) Validate(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (LockStatus, error) {
	status, operationError := manager.validate(ctx, accountID, userID, token)
	logOperation(ctx, manager.logger, OperationLog{
		Operation: operationValidate,
		AccountID: accountID,
		UserID:    userID,
		Token:     token,
		Result:    status.String(),
		Error:     operationError,
	})
	return status, operationError
}

func (manager *LockManager) validate(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (LockStatus, error) {
	lock, err := manager.store.GetLockByToken(ctx, token)
	if errors.Is(err, ErrLockNotFound) {
		return LockStatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if lock.AccountID != accountID || lock.UserID != userID {
		return LockStatusInvalid, nil
	}
	if lock.ReleasedAt != nil {
		return LockStatusReleased, nil
	}
	if !lock.Expiry.After(manager.nowFn()) {
		return LockStatusExpired, nil
	}
	return LockStatusValid, nil
}

// Release stamps the token released. Releasing a token that was already
// released reports Released again rather than an error.
func (manager *LockManager) Release(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (ReleaseStatus, error) {
	status, operationError := manager.release(ctx, accountID, userID, token)
	logOperation(ctx, manager.logger, OperationLog{
		Operation: operationRelease,
		AccountID: accountID,
		UserID:    userID,
		Token:     token,
		Result:    status.String(),
		Error:     operationError,
	})
	return status, operationError
}

func (manager *LockManager) release(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (ReleaseStatus, error) {
	_, err := manager.store.GetOwnedAccount(ctx, accountID, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return ReleaseStatusAccountNotFound, nil
	}
	if err != nil {
		return "", err
	}
	lock, err := manager.store.GetLockByToken(ctx, token)
	if errors.Is(err, ErrLockNotFound) {
		return ReleaseStatusTokenNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if lock.AccountID != accountID || lock.UserID != userID {
		return ReleaseStatusTokenInvalid, nil
	}
	if lock.ReleasedAt != nil {
		return ReleaseStatusReleased, nil
	}
	err = manager.store.ReleaseLock(ctx, token, manager.nowFn())
	if errors.Is(err, ErrReleaseConflict) {
		return ReleaseStatusFailed, nil
	}
	if err != nil {
		return "", err
	}
	return ReleaseStatusReleased, nil
}
