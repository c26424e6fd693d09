package teller

import (
	"context"

	"github.com/shopspring/decimal"
)

// OperationLogger records domain-level events emitted by the core
// components.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one lock, submit, or balance operation.
type OperationLog struct {
	Operation      string
	AccountID      AccountID
	UserID         UserID
	Token          LockToken
	Type           TransactionType
	Amount         decimal.Decimal
	IdempotencyKey IdempotencyKey
	Result         string
	Status         string
	Error          error
}

func logOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logger.LogOperation(ctx, entry)
}
