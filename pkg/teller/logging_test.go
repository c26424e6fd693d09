package teller

import (
	"context"
	"errors"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestLockManagerLogsAcquire(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "100"))
	logger := &recorderLogger{}
	manager := mustNewLockManager(test, store, fixedClock(testNow), WithTokenSource(staticTokens("token-a")), WithLockLogger(logger))
	accountID := mustAccountID(test, stubAccountIDValue)
	userID := mustUserID(test, stubUserIDValue)

	result, err := manager.Acquire(context.Background(), accountID, userID)
	if err != nil {
		test.Fatalf("acquire: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationAcquire || entry.AccountID != accountID || entry.UserID != userID {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Token != result.Token || entry.Result != AcquireStatusAcquired.String() {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestBalanceEngineLogsAdjustErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "100"))
	logger := &recorderLogger{}
	manager := mustNewLockManager(test, store, fixedClock(testNow), WithTokenSource(staticTokens("token-a")))
	engine := mustNewBalanceEngine(test, store, manager, fixedClock(testNow), WithEngineLogger(logger))
	token := mustAcquire(test, manager)
	store.getAccountError = errors.New("boom")

	_, err := engine.Adjust(context.Background(), mustAccountID(test, stubAccountIDValue), mustUserID(test, stubUserIDValue), token, TransactionCredit, mustAmount(test, "10"))
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationAdjust || entry.Status != operationStatusError || entry.Error == nil {
		test.Fatalf("expected error log entry, got %+v", entry)
	}
	if entry.Type != TransactionCredit || !entry.Amount.Equal(mustDecimal(test, "10")) {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestLedgerWriterLogsSubmit(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "0"))
	logger := &recorderLogger{}
	writer := mustNewLedgerWriter(test, store, WithWriterLogger(logger))
	input := mustEntryInput(test, TransactionDebit, "12.34", "key-1")

	if _, err := writer.Submit(context.Background(), input); err != nil {
		test.Fatalf("submit: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationSubmit || entry.IdempotencyKey != input.IdempotencyKey {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Result != SubmitStatusCreated.String() || entry.Status != operationStatusOK {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
}
