package teller

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func staticTokens(tokens ...string) func() string {
	index := 0
	return func() string {
		token := tokens[index%len(tokens)]
		index++
		return token
	}
}

func TestAcquireIssuesTokenWithValidityWindow(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "100"))
	manager := mustNewLockManager(test, store, fixedClock(testNow), WithTokenSource(staticTokens("token-a")))

	result, err := manager.Acquire(context.Background(), mustAccountID(test, stubAccountIDValue), mustUserID(test, stubUserIDValue))
	if err != nil {
		test.Fatalf("acquire: %v", err)
	}
	if result.Status != AcquireStatusAcquired {
		test.Fatalf("expected acquired, got %s", result.Status)
	}
	lock, ok := store.locks["token-a"]
	if !ok {
		test.Fatal("expected lock row for issued token")
	}
	wantExpiry := testNow.Add(5 * time.Minute)
	if !lock.Expiry.Equal(wantExpiry) {
		test.Fatalf("expected expiry %v, got %v", wantExpiry, lock.Expiry)
	}
}

func TestAcquireAccountMisses(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		accountID  int64
		userID     int64
		closed     bool
		wantStatus AcquireStatus
	}{
		{name: "unknown account", accountID: 99, userID: stubUserIDValue, wantStatus: AcquireStatusAccountNotFound},
		{name: "foreign owner", accountID: stubAccountIDValue, userID: stubOtherUserValue, wantStatus: AcquireStatusAccountNotFound},
		{name: "closed account", accountID: stubAccountIDValue, userID: stubUserIDValue, closed: true, wantStatus: AcquireStatusAccountClosed},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, mustDecimal(test, "100"))
			if testCase.closed {
				closedAt := testNow
				store.accounts[stubAccountIDValue].ClosedAt = &closedAt
			}
			manager := mustNewLockManager(test, store, fixedClock(testNow))

			result, err := manager.Acquire(context.Background(), mustAccountID(test, testCase.accountID), mustUserID(test, testCase.userID))
			if err != nil {
				test.Fatalf("acquire: %v", err)
			}
			if result.Status != testCase.wantStatus {
				test.Fatalf("expected %s, got %s", testCase.wantStatus, result.Status)
			}
			if len(store.locks) != 0 {
				test.Fatalf("expected no lock rows, got %d", len(store.locks))
			}
		})
	}
}

func TestAcquireAllowsOverlappingTokens(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "100"))
	manager := mustNewLockManager(test, store, fixedClock(testNow), WithTokenSource(staticTokens("token-a", "token-b")))
	accountID := mustAccountID(test, stubAccountIDValue)
	userID := mustUserID(test, stubUserIDValue)

	first, err := manager.Acquire(context.Background(), accountID, userID)
	if err != nil {
		test.Fatalf("first acquire: %v", err)
	}
	second, err := manager.Acquire(context.Background(), accountID, userID)
	if err != nil {
		test.Fatalf("second acquire: %v", err)
	}
	if first.Status != AcquireStatusAcquired || second.Status != AcquireStatusAcquired {
		test.Fatalf("expected both acquired, got %s and %s", first.Status, second.Status)
	}
	if first.Token == second.Token {
		test.Fatalf("expected distinct tokens, got %s twice", first.Token.String())
	}
	if len(store.locks) != 2 {
		test.Fatalf("expected 2 active lock rows, got %d", len(store.locks))
	}
}

func TestValidateCheckOrder(test *testing.T) {
	test.Parallel()
	released := testNow.Add(-time.Minute)
	testCases := []struct {
		name       string
		configure  func(test *testing.T, store *stubStore)
		accountID  int64
		userID     int64
		token      string
		wantStatus LockStatus
	}{
		{
			name:       "unknown token",
			configure:  func(test *testing.T, store *stubStore) {},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "missing",
			wantStatus: LockStatusNotFound,
		},
		{
			name: "wrong account",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, 2),
					UserID:    mustUserID(test, stubUserIDValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow.Add(time.Minute),
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: LockStatusInvalid,
		},
		{
			name: "wrong user",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, stubAccountIDValue),
					UserID:    mustUserID(test, stubOtherUserValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow.Add(time.Minute),
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: LockStatusInvalid,
		},
		{
			name: "released wins over expired",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID:  mustAccountID(test, stubAccountIDValue),
					UserID:     mustUserID(test, stubUserIDValue),
					Token:      mustLockToken(test, "token-a"),
					Expiry:     testNow.Add(-time.Hour),
					ReleasedAt: &released,
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: LockStatusReleased,
		},
		{
			name: "expiry instant counts as expired",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, stubAccountIDValue),
					UserID:    mustUserID(test, stubUserIDValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow,
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: LockStatusExpired,
		},
		{
			name: "active token is valid",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, stubAccountIDValue),
					UserID:    mustUserID(test, stubUserIDValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow.Add(time.Nanosecond),
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: LockStatusValid,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, mustDecimal(test, "100"))
			testCase.configure(test, store)
			manager := mustNewLockManager(test, store, fixedClock(testNow))

			status, err := manager.Validate(context.Background(), mustAccountID(test, testCase.accountID), mustUserID(test, testCase.userID), mustLockToken(test, testCase.token))
			if err != nil {
				test.Fatalf("validate: %v", err)
			}
			if status != testCase.wantStatus {
				test.Fatalf("expected %s, got %s", testCase.wantStatus, status)
			}
		})
	}
}

func TestReleaseIsIdempotent(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, mustDecimal(test, "100"))
	manager := mustNewLockManager(test, store, fixedClock(testNow), WithTokenSource(staticTokens("token-a")))
	accountID := mustAccountID(test, stubAccountIDValue)
	userID := mustUserID(test, stubUserIDValue)

	result, err := manager.Acquire(context.Background(), accountID, userID)
	if err != nil {
		test.Fatalf("acquire: %v", err)
	}
	for attempt := 0; attempt < 2; attempt++ {
		status, err := manager.Release(context.Background(), accountID, userID, result.Token)
		if err != nil {
			test.Fatalf("release attempt %d: %v", attempt, err)
		}
		if status != ReleaseStatusReleased {
			test.Fatalf("release attempt %d: expected released, got %s", attempt, status)
		}
	}
	lock := store.locks["token-a"]
	if lock.ReleasedAt == nil || !lock.ReleasedAt.Equal(testNow) {
		test.Fatalf("expected release stamped at %v, got %v", testNow, lock.ReleasedAt)
	}
}

func TestReleaseMisses(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		configure  func(test *testing.T, store *stubStore)
		accountID  int64
		userID     int64
		token      string
		wantStatus ReleaseStatus
	}{
		{
			name:       "unknown account",
			configure:  func(test *testing.T, store *stubStore) {},
			accountID:  99,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: ReleaseStatusAccountNotFound,
		},
		{
			name:       "unknown token",
			configure:  func(test *testing.T, store *stubStore) {},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "missing",
			wantStatus: ReleaseStatusTokenNotFound,
		},
		{
			name: "token bound elsewhere",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, 2),
					UserID:    mustUserID(test, stubUserIDValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow.Add(time.Minute),
				}
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: ReleaseStatusTokenInvalid,
		},
		{
			name: "conflicting release",
			configure: func(test *testing.T, store *stubStore) {
				store.locks["token-a"] = &Lock{
					AccountID: mustAccountID(test, stubAccountIDValue),
					UserID:    mustUserID(test, stubUserIDValue),
					Token:     mustLockToken(test, "token-a"),
					Expiry:    testNow.Add(time.Minute),
				}
				store.releaseLockError = ErrReleaseConflict
			},
			accountID:  stubAccountIDValue,
			userID:     stubUserIDValue,
			token:      "token-a",
			wantStatus: ReleaseStatusFailed,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, mustDecimal(test, "100"))
			testCase.configure(test, store)
			manager := mustNewLockManager(test, store, fixedClock(testNow))

			status, err := manager.Release(context.Background(), mustAccountID(test, testCase.accountID), mustUserID(test, testCase.userID), mustLockToken(test, testCase.token))
			if err != nil {
				test.Fatalf("release: %v", err)
			}
			if status != testCase.wantStatus {
				test.Fatalf("expected %s, got %s", testCase.wantStatus, status)
			}
		})
	}
}

func TestLockManagerReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	errStoreFailure := errors.New("store failure")
	testCases := []struct {
		name      string
		configure func(store *stubStore)
		call      func(manager *LockManager, accountID AccountID, userID UserID, token LockToken) error
	}{
		{
			name:      "acquire account lookup",
			configure: func(store *stubStore) { store.getOwnedAccountError = errStoreFailure },
			call: func(manager *LockManager, accountID AccountID, userID UserID, _ LockToken) error {
				_, err := manager.Acquire(context.Background(), accountID, userID)
				return err
			},
		},
		{
			name:      "acquire lock insert",
			configure: func(store *stubStore) { store.createLockError = errStoreFailure },
			call: func(manager *LockManager, accountID AccountID, userID UserID, _ LockToken) error {
				_, err := manager.Acquire(context.Background(), accountID, userID)
				return err
			},
		},
		{
			name:      "validate token lookup",
			configure: func(store *stubStore) { store.getLockError = errStoreFailure },
			call: func(manager *LockManager, accountID AccountID, userID UserID, token LockToken) error {
				_, err := manager.Validate(context.Background(), accountID, userID, token)
				return err
			},
		},
		{
			name:      "release token lookup",
			configure: func(store *stubStore) { store.getLockError = errStoreFailure },
			call: func(manager *LockManager, accountID AccountID, userID UserID, token LockToken) error {
				_, err := manager.Release(context.Background(), accountID, userID, token)
				return err
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, mustDecimal(test, "100"))
			testCase.configure(store)
			manager := mustNewLockManager(test, store, fixedClock(testNow))

			err := testCase.call(manager, mustAccountID(test, stubAccountIDValue), mustUserID(test, stubUserIDValue), mustLockToken(test, "token-a"))
			if !errors.Is(err, errStoreFailure) {
				test.Fatalf("expected %v, got %v", errStoreFailure, err)
			}
		})
	}
}

func TestNewLockManagerRejectsMissingDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewLockManager(nil, fixedClock(testNow)); !errors.Is(err, ErrInvalidComponentConfig) {
		test.Fatalf("expected config error for nil store, got %v", err)
	}
	if _, err := NewLockManager(newStubStore(test, mustDecimal(test, "0")), nil); !errors.Is(err, ErrInvalidComponentConfig) {
		test.Fatalf("expected config error for nil clock, got %v", err)
	}
}
