package teller

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountID identifies an account.
type AccountID struct {
	value int64
}

// UserID identifies an account owner.
type UserID struct {
	value int64
}

// LockToken is the opaque capability string required to mutate an account.
type LockToken struct {
	value string
}

// IdempotencyKey scopes duplicate detection for transaction submission.
type IdempotencyKey struct {
	value string
}

// Amount is a positive fixed-point monetary magnitude with at most two
// decimal digits.
type Amount struct {
	value decimal.Decimal
}

// TransactionType enumerates ledger entry directions.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// NewAccountID validates a numeric account id.
func NewAccountID(raw int64) (AccountID, error) {
	if raw <= 0 {
		return AccountID{}, fmt.Errorf("%w: must be positive", ErrInvalidAccountID)
	}
	return AccountID{value: raw}, nil
}

// Int64 returns the numeric identifier.
func (id AccountID) Int64() int64 {
	return id.value
}

// NewUserID validates a numeric user id.
func NewUserID(raw int64) (UserID, error) {
	if raw <= 0 {
		return UserID{}, fmt.Errorf("%w: must be positive", ErrInvalidUserID)
	}
	return UserID{value: raw}, nil
}

// Int64 returns the numeric identifier.
func (id UserID) Int64() int64 {
	return id.value
}

// NewLockToken validates and normalizes a lock token string.
func NewLockToken(raw string) (LockToken, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LockToken{}, fmt.Errorf("%w: empty value", ErrInvalidLockToken)
	}
	return LockToken{value: trimmed}, nil
}

// String returns the normalized token.
func (token LockToken) String() string {
	return token.value
}

// NewIdempotencyKey validates and normalizes an idempotency key.
func NewIdempotencyKey(raw string) (IdempotencyKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return IdempotencyKey{}, fmt.Errorf("%w: empty value", ErrInvalidIdempotencyKey)
	}
	return IdempotencyKey{value: trimmed}, nil
}

// String returns the normalized key.
func (key IdempotencyKey) String() string {
	return key.value
}

// NewAmount validates a transaction magnitude: strictly positive, at most
// two decimal digits.
func NewAmount(raw decimal.Decimal) (Amount, error) {
	if !raw.IsPositive() {
		return Amount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if raw.Exponent() < -balanceScale {
		return Amount{}, fmt.Errorf("%w: at most %d decimal digits", ErrInvalidAmount, balanceScale)
	}
	return Amount{value: raw}, nil
}

// ParseAmount validates a magnitude supplied as a decimal string.
func ParseAmount(raw string) (Amount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return NewAmount(value)
}

// Decimal returns the magnitude.
func (amount Amount) Decimal() decimal.Decimal {
	return amount.value
}

// String renders the magnitude.
func (amount Amount) String() string {
	return amount.value.String()
}

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(strings.TrimSpace(raw)) {
	case TransactionCredit:
		return TransactionCredit, nil
	case TransactionDebit:
		return TransactionDebit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
	}
}

// String returns the type discriminant.
func (transactionType TransactionType) String() string {
	return string(transactionType)
}

// Account is the stored account row. Balance is mutated only by the
// BalanceEngine; ClosedAt is nil while the account is open.
type Account struct {
	ID        AccountID
	UserID    UserID
	Name      string
	Balance   decimal.Decimal
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the account still accepts locks and mutations.
func (account Account) Open() bool {
	return account.ClosedAt == nil
}

// Lock is a stored lock token row. ReleasedAt is nil while the token is
// active; expiry is only ever evaluated at validation time.
type Lock struct {
	ID         int64
	AccountID  AccountID
	UserID     UserID
	Token      LockToken
	Expiry     time.Time
	ReleasedAt *time.Time
	CreatedAt  time.Time
}

// LockInput carries the fields needed to persist a new lock token.
type LockInput struct {
	AccountID AccountID
	UserID    UserID
	Token     LockToken
	Expiry    time.Time
}

// Entry is one immutable ledger line: a recorded credit or debit intent.
type Entry struct {
	ID             int64
	AccountID      AccountID
	UserID         UserID
	Type           TransactionType
	Amount         decimal.Decimal
	IdempotencyKey IdempotencyKey
	CreatedAt      time.Time
}

// EntryInput carries the fields needed to persist a new ledger entry.
type EntryInput struct {
	AccountID      AccountID
	UserID         UserID
	Type           TransactionType
	Amount         Amount
	IdempotencyKey IdempotencyKey
}

// NewEntryInput validates the parts of a ledger entry before insert.
func NewEntryInput(accountID AccountID, userID UserID, transactionType TransactionType, amount Amount, idempotencyKey IdempotencyKey) (EntryInput, error) {
	if accountID == (AccountID{}) {
		return EntryInput{}, fmt.Errorf("%w: zero value", ErrInvalidAccountID)
	}
	if userID == (UserID{}) {
		return EntryInput{}, fmt.Errorf("%w: zero value", ErrInvalidUserID)
	}
	if _, err := ParseTransactionType(transactionType.String()); err != nil {
		return EntryInput{}, err
	}
	if amount == (Amount{}) {
		return EntryInput{}, fmt.Errorf("%w: zero value", ErrInvalidAmount)
	}
	if idempotencyKey == (IdempotencyKey{}) {
		return EntryInput{}, fmt.Errorf("%w: zero value", ErrInvalidIdempotencyKey)
	}
	return EntryInput{
		AccountID:      accountID,
		UserID:         userID,
		Type:           transactionType,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// User is a stored account owner.
type User struct {
	ID        UserID
	UserName  string
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// UserInput carries the fields needed to register a user.
type UserInput struct {
	UserName  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Validate checks that every registration field is present.
func (input UserInput) Validate() error {
	for _, field := range []string{input.UserName, input.FirstName, input.LastName, input.Email, input.Password} {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("%w: missing required field", ErrInvalidUserInput)
		}
	}
	return nil
}
