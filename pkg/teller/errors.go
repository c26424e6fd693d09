package teller

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the core components and the Store.
var (
	ErrUserNotFound            = errors.New("user not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrLockNotFound            = errors.New("lock token not found")
	ErrEntryNotFound           = errors.New("ledger entry not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrDuplicateUser           = errors.New("user already exists")
	ErrBalanceConflict         = errors.New("balance changed since read")
	ErrCloseConflict           = errors.New("account close conflict")
	ErrReleaseConflict         = errors.New("lock release conflict")
	ErrInvalidAccountID        = errors.New("invalid account id")
	ErrInvalidUserID           = errors.New("invalid user id")
	ErrInvalidLockToken        = errors.New("invalid lock token")
	ErrInvalidIdempotencyKey   = errors.New("invalid idempotency key")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidTransactionType  = errors.New("invalid transaction type")
	ErrInvalidAccountName      = errors.New("invalid account name")
	ErrInvalidUserInput        = errors.New("invalid user input")
	ErrInvalidComponentConfig  = errors.New("invalid component config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
