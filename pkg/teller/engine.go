package teller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceEngine is the only component that mutates account balance. Every
// mutation is gated by a lock token validated through the LockManager and
// committed as a conditional write: the update only lands if the row still
// holds the balance that was read, so two overlapping token holders cannot
// silently lose an update.
type BalanceEngine struct {
	store  Store
	locks  *LockManager
	nowFn  func() time.Time
	logger OperationLogger
}

// BalanceEngineOption configures a BalanceEngine instance.
type BalanceEngineOption func(*BalanceEngine)

// WithEngineLogger wires a logger that receives every balance operation.
func WithEngineLogger(logger OperationLogger) BalanceEngineOption {
	return func(engine *BalanceEngine) {
		engine.logger = logger
	}
}

// NewBalanceEngine wires a BalanceEngine.
func NewBalanceEngine(store Store, locks *LockManager, now func() time.Time, options ...BalanceEngineOption) (*BalanceEngine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidComponentConfig)
	}
	if locks == nil {
		return nil, fmt.Errorf("%w: lock manager dependency is nil", ErrInvalidComponentConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidComponentConfig)
	}
	engine := &BalanceEngine{store: store, locks: locks, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(engine)
		}
	}
	return engine, nil
}

// Adjust applies a signed delta to the account balance: credit adds the
// amount, debit subtracts it. All arithmetic is exact decimal at two
// digits; there is no floating point anywhere on this path.
func (engine *BalanceEngine) Adjust(ctx context.Context, accountID AccountID, userID UserID, token LockToken, transactionType TransactionType, amount Amount) (AdjustResult, error) {
	result, operationError := engine.adjust(ctx, accountID, userID, token, transactionType, amount)
	logOperation(ctx, engine.logger, OperationLog{
		Operation: operationAdjust,
		AccountID: accountID,
		UserID:    userID,
		Token:     token,
		Type:      transactionType,
		Amount:    amount.Decimal(),
		Result:    result.Status.String(),
		Error:     operationError,
	})
	return result, operationError
}

func (engine *BalanceEngine) adjust(ctx context.Context, accountID AccountID, userID UserID, token LockToken, transactionType TransactionType, amount Amount) (AdjustResult, error) {
	lockStatus, err := engine.locks.Validate(ctx, accountID, userID, token)
	if err != nil {
		return AdjustResult{}, err
	}
	if lockStatus != LockStatusValid {
		return AdjustResult{Status: adjustStatusForLock(lockStatus)}, nil
	}

	account, err := engine.store.GetAccount(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return AdjustResult{Status: AdjustStatusAccountNotFound}, nil
	}
	if err != nil {
		return AdjustResult{}, err
	}
	if !account.Open() {
		return AdjustResult{Status: AdjustStatusAccountClosed}, nil
	}

	currentBalance := account.Balance
	delta := amount.Decimal()
	if transactionType == TransactionDebit {
		if currentBalance.LessThan(delta) {
			balance := currentBalance
			return AdjustResult{Status: AdjustStatusInsufficientFunds, Balance: &balance}, nil
		}
		delta = delta.Neg()
	}
	newBalance := currentBalance.Add(delta)

	err = engine.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		return txStore.UpdateAccountBalance(ctx, accountID, currentBalance, newBalance)
	})
	if errors.Is(err, ErrBalanceConflict) {
		// Another writer moved the balance after our read. Only possible
		// when the lock-token discipline was bypassed; fail loudly.
		return AdjustResult{Status: AdjustStatusFailed}, nil
	}
	if err != nil {
		return AdjustResult{}, err
	}

	updated, err := engine.store.GetAccount(ctx, accountID)
	if err != nil {
		return AdjustResult{}, err
	}
	persisted := updated.Balance
	return AdjustResult{Status: AdjustStatusSuccess, Balance: &persisted}, nil
}

// CloseAccount marks the account closed. Closing is terminal: a closed
// account rejects every further lock and mutation, and is never reopened.
func (engine *BalanceEngine) CloseAccount(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (CloseStatus, error) {
	status, operationError := engine.closeAccount(ctx, accountID, userID, token)
	logOperation(ctx, engine.logger, OperationLog{
		Operation: operationClose,
		AccountID: accountID,
		UserID:    userID,
		Token:     token,
		Result:    status.String(),
		Error:     operationError,
	})
	return status, operationError
}

func (engine *BalanceEngine) closeAccount(ctx context.Context, accountID AccountID, userID UserID, token LockToken) (CloseStatus, error) {
	lockStatus, err := engine.locks.Validate(ctx, accountID, userID, token)
	if err != nil {
		return "", err
	}
	if lockStatus != LockStatusValid {
		return closeStatusForLock(lockStatus), nil
	}

	account, err := engine.store.GetOwnedAccount(ctx, accountID, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return CloseStatusAccountNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if !account.Open() {
		return CloseStatusAccountClosed, nil
	}

	err = engine.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		return txStore.MarkAccountClosed(ctx, accountID, engine.nowFn())
	})
	if errors.Is(err, ErrCloseConflict) {
		return CloseStatusFailed, nil
	}
	if err != nil {
		return "", err
	}
	return CloseStatusSuccess, nil
}

// Balance returns the current balance without mutating anything.
func (engine *BalanceEngine) Balance(ctx context.Context, accountID AccountID, userID UserID) (decimal.Decimal, error) {
	account, err := engine.store.GetOwnedAccount(ctx, accountID, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return account.Balance, nil
}
