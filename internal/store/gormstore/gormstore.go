package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/TellerWorksLab/teller/pkg/teller"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore = "store"
	errorSubjectUser    = "user"
	errorSubjectAccount = "account"
	errorSubjectLock    = "lock"
	errorSubjectEntry   = "entry"
	errorCodeCreate     = "create"
	errorCodeGet        = "get"
	errorCodeList       = "list"
	errorCodeInsert     = "insert"
	errorCodeInvalid    = "invalid"
	errorCodeUpdate     = "update"
)

// Store implements teller.Store using GORM against PostgreSQL or SQLite.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema for drivers without migration tooling.
func (store *Store) Migrate() error {
	return store.db.AutoMigrate(&User{}, &Account{}, &Lock{}, &LedgerEntry{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore teller.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateUser(ctx context.Context, input teller.UserInput) (teller.User, error) {
	model := User{
		UserName:  input.UserName,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.Password,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return teller.User{}, wrapStoreError(errorSubjectUser, errorCodeCreate, teller.ErrDuplicateUser)
	}
	if err != nil {
		return teller.User{}, wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	return mapUser(model)
}

func (store *Store) GetUser(ctx context.Context, userID teller.UserID) (teller.User, error) {
	var model User
	err := store.db.WithContext(ctx).Where("id = ?", userID.Int64()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teller.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, teller.ErrUserNotFound)
	}
	if err != nil {
		return teller.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	return mapUser(model)
}

func (store *Store) CreateAccount(ctx context.Context, userID teller.UserID, name string) (teller.Account, error) {
	model := Account{
		UserID:      userID.Int64(),
		AccountName: name,
		Balance:     decimal.Zero,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return mapAccount(model)
}

func (store *Store) GetAccount(ctx context.Context, accountID teller.AccountID) (teller.Account, error) {
	var model Account
	err := store.db.WithContext(ctx).Where("id = ?", accountID.Int64()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, teller.ErrAccountNotFound)
	}
	if err != nil {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(model)
}

func (store *Store) GetOwnedAccount(ctx context.Context, accountID teller.AccountID, userID teller.UserID) (teller.Account, error) {
	var model Account
	err := store.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID.Int64(), userID.Int64()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, teller.ErrAccountNotFound)
	}
	if err != nil {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(model)
}

func (store *Store) ListAccounts(ctx context.Context, userID teller.UserID) ([]teller.Account, error) {
	var rows []Account
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.Int64()).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	accounts := make([]teller.Account, 0, len(rows))
	for _, row := range rows {
		account, err := mapAccount(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// UpdateAccountBalance is the optimistic write at the heart of lost-update
// protection: the row is only touched while it still holds the balance the
// caller read.
func (store *Store) UpdateAccountBalance(ctx context.Context, accountID teller.AccountID, previous, next decimal.Decimal) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND balance = ?", accountID.Int64(), previous).
		Update("balance", next)
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, teller.ErrBalanceConflict)
	}
	return nil
}

func (store *Store) MarkAccountClosed(ctx context.Context, accountID teller.AccountID, closedAt time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND closed_at IS NULL", accountID.Int64()).
		Update("closed_at", closedAt)
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, teller.ErrCloseConflict)
	}
	return nil
}

func (store *Store) CreateLock(ctx context.Context, input teller.LockInput) (teller.Lock, error) {
	model := Lock{
		AccountID: input.AccountID.Int64(),
		UserID:    input.UserID.Int64(),
		LockToken: input.Token.String(),
		Expiry:    input.Expiry,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeCreate, err)
	}
	return mapLock(model)
}

func (store *Store) GetLockByToken(ctx context.Context, token teller.LockToken) (teller.Lock, error) {
	var model Lock
	err := store.db.WithContext(ctx).Where("lock_token = ?", token.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeGet, teller.ErrLockNotFound)
	}
	if err != nil {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeGet, err)
	}
	return mapLock(model)
}

func (store *Store) ReleaseLock(ctx context.Context, token teller.LockToken, releasedAt time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Lock{}).
		Where("lock_token = ? AND released_at IS NULL", token.String()).
		Update("released_at", releasedAt)
	if result.Error != nil {
		return wrapStoreError(errorSubjectLock, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectLock, errorCodeUpdate, teller.ErrReleaseConflict)
	}
	return nil
}

func (store *Store) InsertEntry(ctx context.Context, input teller.EntryInput) (teller.Entry, error) {
	model := LedgerEntry{
		AccountID:       input.AccountID.Int64(),
		UserID:          input.UserID.Int64(),
		TransactionType: input.Type.String(),
		Amount:          input.Amount.Decimal(),
		IdempotencyKey:  input.IdempotencyKey.String(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, teller.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return mapEntry(model)
}

func (store *Store) GetEntryByIdempotencyKey(ctx context.Context, key teller.IdempotencyKey) (teller.Entry, error) {
	var model LedgerEntry
	err := store.db.WithContext(ctx).Where("idempotency_key = ?", key.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, teller.ErrEntryNotFound)
	}
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	return mapEntry(model)
}

func (store *Store) ListEntries(ctx context.Context, accountID teller.AccountID) ([]teller.Entry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.Int64()).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]teller.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return teller.WrapError(errorOperationStore, subject, code, err)
}

func mapUser(model User) (teller.User, error) {
	userID, err := teller.NewUserID(model.ID)
	if err != nil {
		return teller.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return teller.User{
		ID:        userID,
		UserName:  model.UserName,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
	}, nil
}

func mapAccount(model Account) (teller.Account, error) {
	accountID, err := teller.NewAccountID(model.ID)
	if err != nil {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	userID, err := teller.NewUserID(model.UserID)
	if err != nil {
		return teller.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return teller.Account{
		ID:        accountID,
		UserID:    userID,
		Name:      model.AccountName,
		Balance:   model.Balance,
		ClosedAt:  model.ClosedAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func mapLock(model Lock) (teller.Lock, error) {
	accountID, err := teller.NewAccountID(model.AccountID)
	if err != nil {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeInvalid, err)
	}
	userID, err := teller.NewUserID(model.UserID)
	if err != nil {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeInvalid, err)
	}
	token, err := teller.NewLockToken(model.LockToken)
	if err != nil {
		return teller.Lock{}, wrapStoreError(errorSubjectLock, errorCodeInvalid, err)
	}
	return teller.Lock{
		ID:         model.ID,
		AccountID:  accountID,
		UserID:     userID,
		Token:      token,
		Expiry:     model.Expiry,
		ReleasedAt: model.ReleasedAt,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func mapEntry(model LedgerEntry) (teller.Entry, error) {
	accountID, err := teller.NewAccountID(model.AccountID)
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	userID, err := teller.NewUserID(model.UserID)
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	transactionType, err := teller.ParseTransactionType(model.TransactionType)
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	idempotencyKey, err := teller.NewIdempotencyKey(model.IdempotencyKey)
	if err != nil {
		return teller.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return teller.Entry{
		ID:             model.ID,
		AccountID:      accountID,
		UserID:         userID,
		Type:           transactionType,
		Amount:         model.Amount,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      model.CreatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
