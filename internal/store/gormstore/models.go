package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the users table.
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserName  string `gorm:"not null;index:uniq_users_user_name,unique"`
	FirstName string `gorm:"not null"`
	LastName  string `gorm:"not null"`
	Email     string `gorm:"not null;index:uniq_users_email,unique"`
	Password  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

// Account represents the accounts table. Balance is decimal(12,2); the
// column is only ever written through the conditional update in
// UpdateAccountBalance.
type Account struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	UserID      int64           `gorm:"not null;index:idx_accounts_user"`
	AccountName string          `gorm:"not null"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ClosedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Account) TableName() string { return "accounts" }

// Lock represents the locks table. Rows are never deleted; expiry is
// evaluated lazily at validate time and released_at marks explicit release.
type Lock struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	AccountID  int64     `gorm:"not null;index:idx_locks_account"`
	UserID     int64     `gorm:"not null"`
	LockToken  string    `gorm:"not null;index:uniq_locks_token,unique"`
	Expiry     time.Time `gorm:"not null"`
	ReleasedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Lock) TableName() string { return "locks" }

// LedgerEntry represents the append-only ledger_entries table.
type LedgerEntry struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	AccountID       int64           `gorm:"not null;index:idx_entries_account"`
	UserID          int64           `gorm:"not null"`
	TransactionType string          `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IdempotencyKey  string          `gorm:"not null;index:uniq_entries_idempotency_key,unique"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
