// Package seed rebuilds the schema and loads demo fixtures. It drops the
// existing tables first, so it is only meant for local development.
package seed

import (
	"time"

	"github.com/TellerWorksLab/teller/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run drops and recreates every table, then inserts demo users, accounts,
// and ledger history.
func Run(db *gorm.DB) error {
	models := []any{&gormstore.User{}, &gormstore.Account{}, &gormstore.Lock{}, &gormstore.LedgerEntry{}}
	if err := db.Migrator().DropTable(models...); err != nil {
		return err
	}
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	now := time.Now().UTC()
	users := []gormstore.User{
		{ID: 1, FirstName: "Harry", LastName: "Potter", UserName: "wizard", Password: "youknowwho", Email: "harry@hogwarts.com"},
		{ID: 2, FirstName: "Jeffrey", LastName: "Lebowski", UserName: "thedude", Password: "bummer", Email: "dude@abides.com"},
		{ID: 3, FirstName: "Darth", LastName: "Vader", UserName: "sith4lyfe", Password: "podracer", Email: "iam@yourfather.com"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	accounts := []gormstore.Account{
		{ID: 1, AccountName: "Weird Al Acting Lessons", UserID: 1, Balance: decimal.NewFromInt(1000)},
		{ID: 2, AccountName: "Bowling", UserID: 2, Balance: decimal.Zero},
		{ID: 3, AccountName: "Higher Ground", UserID: 3, Balance: decimal.Zero, ClosedAt: &now},
	}
	if err := db.Create(&accounts).Error; err != nil {
		return err
	}

	entries := []gormstore.LedgerEntry{
		{ID: 1, UserID: 1, AccountID: 1, TransactionType: "credit", Amount: decimal.NewFromInt(1000), IdempotencyKey: "first"},
		{ID: 2, UserID: 2, AccountID: 2, TransactionType: "credit", Amount: decimal.NewFromInt(1000), IdempotencyKey: "second"},
		{ID: 3, UserID: 2, AccountID: 2, TransactionType: "debit", Amount: decimal.NewFromInt(1000), IdempotencyKey: "third"},
	}
	return db.Create(&entries).Error
}
