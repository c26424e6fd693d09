package teller

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	stubAccountIDValue = int64(1)
	stubUserIDValue    = int64(7)
	stubOtherUserValue = int64(8)
)

// stubStore is an in-memory Store with per-method error injection.
type stubStore struct {
	accounts map[int64]*Account
	locks    map[string]*Lock
	entries  map[string]Entry
	users    map[int64]User

	nextLockID  int64
	nextEntryID int64

	balanceWrites int

	getAccountError      error
	getOwnedAccountError error
	updateBalanceError   error
	markClosedError      error
	createLockError      error
	getLockError         error
	releaseLockError     error
	insertEntryError     error
	getEntryError        error
	withTxError          error
}

func newStubStore(test *testing.T, balance decimal.Decimal) *stubStore {
	test.Helper()
	accountID := mustAccountID(test, stubAccountIDValue)
	userID := mustUserID(test, stubUserIDValue)
	return &stubStore{
		accounts: map[int64]*Account{
			stubAccountIDValue: {ID: accountID, UserID: userID, Name: "checking", Balance: balance},
		},
		locks:   map[string]*Lock{},
		entries: map[string]Entry{},
		users:   map[int64]User{},
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.withTxError != nil {
		return store.withTxError
	}
	return fn(ctx, store)
}

func (store *stubStore) CreateUser(ctx context.Context, input UserInput) (User, error) {
	return User{}, nil
}

func (store *stubStore) GetUser(ctx context.Context, userID UserID) (User, error) {
	user, ok := store.users[userID.Int64()]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (store *stubStore) CreateAccount(ctx context.Context, userID UserID, name string) (Account, error) {
	return Account{}, nil
}

func (store *stubStore) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	account, ok := store.accounts[accountID.Int64()]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *account, nil
}

func (store *stubStore) GetOwnedAccount(ctx context.Context, accountID AccountID, userID UserID) (Account, error) {
	if store.getOwnedAccountError != nil {
		return Account{}, store.getOwnedAccountError
	}
	account, ok := store.accounts[accountID.Int64()]
	if !ok || account.UserID != userID {
		return Account{}, ErrAccountNotFound
	}
	return *account, nil
}

func (store *stubStore) ListAccounts(ctx context.Context, userID UserID) ([]Account, error) {
	var accounts []Account
	for _, account := range store.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

func (store *stubStore) UpdateAccountBalance(ctx context.Context, accountID AccountID, previous, next decimal.Decimal) error {
	if store.updateBalanceError != nil {
		return store.updateBalanceError
	}
	account, ok := store.accounts[accountID.Int64()]
	if !ok || !account.Balance.Equal(previous) {
		return ErrBalanceConflict
	}
	account.Balance = next
	store.balanceWrites++
	return nil
}

func (store *stubStore) MarkAccountClosed(ctx context.Context, accountID AccountID, closedAt time.Time) error {
	if store.markClosedError != nil {
		return store.markClosedError
	}
	account, ok := store.accounts[accountID.Int64()]
	if !ok || account.ClosedAt != nil {
		return ErrCloseConflict
	}
	account.ClosedAt = &closedAt
	return nil
}

func (store *stubStore) CreateLock(ctx context.Context, input LockInput) (Lock, error) {
	if store.createLockError != nil {
		return Lock{}, store.createLockError
	}
	store.nextLockID++
	lock := Lock{
		ID:        store.nextLockID,
		AccountID: input.AccountID,
		UserID:    input.UserID,
		Token:     input.Token,
		Expiry:    input.Expiry,
	}
	store.locks[input.Token.String()] = &lock
	return lock, nil
}

func (store *stubStore) GetLockByToken(ctx context.Context, token LockToken) (Lock, error) {
	if store.getLockError != nil {
		return Lock{}, store.getLockError
	}
	lock, ok := store.locks[token.String()]
	if !ok {
		return Lock{}, ErrLockNotFound
	}
	return *lock, nil
}

func (store *stubStore) ReleaseLock(ctx context.Context, token LockToken, releasedAt time.Time) error {
	if store.releaseLockError != nil {
		return store.releaseLockError
	}
	lock, ok := store.locks[token.String()]
	if !ok || lock.ReleasedAt != nil {
		return ErrReleaseConflict
	}
	lock.ReleasedAt = &releasedAt
	return nil
}

func (store *stubStore) InsertEntry(ctx context.Context, input EntryInput) (Entry, error) {
	if store.insertEntryError != nil {
		return Entry{}, store.insertEntryError
	}
	if _, exists := store.entries[input.IdempotencyKey.String()]; exists {
		return Entry{}, ErrDuplicateIdempotencyKey
	}
	store.nextEntryID++
	entry := Entry{
		ID:             store.nextEntryID,
		AccountID:      input.AccountID,
		UserID:         input.UserID,
		Type:           input.Type,
		Amount:         input.Amount.Decimal(),
		IdempotencyKey: input.IdempotencyKey,
	}
	store.entries[input.IdempotencyKey.String()] = entry
	return entry, nil
}

func (store *stubStore) GetEntryByIdempotencyKey(ctx context.Context, key IdempotencyKey) (Entry, error) {
	if store.getEntryError != nil {
		return Entry{}, store.getEntryError
	}
	entry, ok := store.entries[key.String()]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (store *stubStore) ListEntries(ctx context.Context, accountID AccountID) ([]Entry, error) {
	var entries []Entry
	for _, entry := range store.entries {
		if entry.AccountID == accountID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func mustAccountID(test *testing.T, raw int64) AccountID {
	test.Helper()
	accountID, err := NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return accountID
}

func mustUserID(test *testing.T, raw int64) UserID {
	test.Helper()
	userID, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return userID
}

func mustLockToken(test *testing.T, raw string) LockToken {
	test.Helper()
	token, err := NewLockToken(raw)
	if err != nil {
		test.Fatalf("lock token: %v", err)
	}
	return token
}

func mustIdempotencyKey(test *testing.T, raw string) IdempotencyKey {
	test.Helper()
	key, err := NewIdempotencyKey(raw)
	if err != nil {
		test.Fatalf("idempotency key: %v", err)
	}
	return key
}

func mustAmount(test *testing.T, raw string) Amount {
	test.Helper()
	amount, err := ParseAmount(raw)
	if err != nil {
		test.Fatalf("amount: %v", err)
	}
	return amount
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal: %v", err)
	}
	return value
}

func mustEntryInput(test *testing.T, transactionType TransactionType, amount, key string) EntryInput {
	test.Helper()
	input, err := NewEntryInput(
		mustAccountID(test, stubAccountIDValue),
		mustUserID(test, stubUserIDValue),
		transactionType,
		mustAmount(test, amount),
		mustIdempotencyKey(test, key),
	)
	if err != nil {
		test.Fatalf("entry input: %v", err)
	}
	return input
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustNewLockManager(test *testing.T, store Store, now func() time.Time, options ...LockManagerOption) *LockManager {
	test.Helper()
	manager, err := NewLockManager(store, now, options...)
	if err != nil {
		test.Fatalf("lock manager: %v", err)
	}
	return manager
}

func mustNewLedgerWriter(test *testing.T, store Store, options ...LedgerWriterOption) *LedgerWriter {
	test.Helper()
	writer, err := NewLedgerWriter(store, options...)
	if err != nil {
		test.Fatalf("ledger writer: %v", err)
	}
	return writer
}

func mustNewBalanceEngine(test *testing.T, store Store, locks *LockManager, now func() time.Time, options ...BalanceEngineOption) *BalanceEngine {
	test.Helper()
	engine, err := NewBalanceEngine(store, locks, now, options...)
	if err != nil {
		test.Fatalf("balance engine: %v", err)
	}
	return engine
}
