package teller

import (
	"context"
	"errors"
	"fmt"
)

// LedgerWriter records transaction intent under a caller-supplied
// idempotency key before any balance effect happens. It never touches
// account state: a duplicate key is rejected here regardless of whether
// the original application of that key went on to adjust the balance.
type LedgerWriter struct {
	store  Store
	logger OperationLogger
}

// LedgerWriterOption configures a LedgerWriter instance.
type LedgerWriterOption func(*LedgerWriter)

// WithWriterLogger wires a logger that receives every submit operation.
func WithWriterLogger(logger OperationLogger) LedgerWriterOption {
	return func(writer *LedgerWriter) {
		writer.logger = logger
	}
}

// NewLedgerWriter wires a LedgerWriter.
func NewLedgerWriter(store Store, options ...LedgerWriterOption) (*LedgerWriter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidComponentConfig)
	}
	writer := &LedgerWriter{store: store}
	for _, option := range options {
		if option != nil {
			option(writer)
		}
	}
	return writer, nil
}

// Submit records one credit or debit intent. The entry is append-only:
// created once, never updated or deleted.
func (writer *LedgerWriter) Submit(ctx context.Context, input EntryInput) (SubmitResult, error) {
	result, operationError := writer.submit(ctx, input)
	logOperation(ctx, writer.logger, OperationLog{
		Operation:      operationSubmit,
		AccountID:      input.AccountID,
		UserID:         input.UserID,
		Type:           input.Type,
		Amount:         input.Amount.Decimal(),
		IdempotencyKey: input.IdempotencyKey,
		Result:         result.Status.String(),
		Error:          operationError,
	})
	return result, operationError
}

func (writer *LedgerWriter) submit(ctx context.Context, input EntryInput) (SubmitResult, error) {
	existing, err := writer.store.GetEntryByIdempotencyKey(ctx, input.IdempotencyKey)
	if err == nil {
		return SubmitResult{Status: SubmitStatusAlreadyExists, Entry: existing}, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return SubmitResult{}, err
	}
	entry, err := writer.store.InsertEntry(ctx, input)
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		// Lost an insert race for the same key. The winner's row is the
		// entry of record.
		existing, lookupErr := writer.store.GetEntryByIdempotencyKey(ctx, input.IdempotencyKey)
		if lookupErr != nil {
			return SubmitResult{}, lookupErr
		}
		return SubmitResult{Status: SubmitStatusAlreadyExists, Entry: existing}, nil
	}
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Status: SubmitStatusCreated, Entry: entry}, nil
}
