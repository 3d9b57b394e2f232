package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gym_backoffice_echo/internal/models"
)

// SetupTestDB creates a migrated in-memory SQLite database for one test
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to SQLite test database: %v", err)
	}

	// Every connection to ":memory:" opens a fresh database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQLite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateTrainer inserts a trainer account
func CreateTrainer(t *testing.T, db *gorm.DB, username string, dni int64) models.User {
	t.Helper()
	user := models.User{Username: username, DNI: dni, Role: models.UserRoleTrainer}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create trainer %s: %v", username, err)
	}
	return user
}

// CreateSocio inserts a socio, optionally assigned to a trainer
func CreateSocio(t *testing.T, db *gorm.DB, surname, givenName string, trainerID *uint) models.Socio {
	t.Helper()
	socio := models.Socio{
		Surname:   surname,
		GivenName: givenName,
		BirthDate: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
		TrainerID: trainerID,
	}
	if err := db.Create(&socio).Error; err != nil {
		t.Fatalf("Failed to create socio %s: %v", surname, err)
	}
	return socio
}

// CreateShare inserts a share with the given amount
func CreateShare(t *testing.T, db *gorm.DB, amount string) models.Share {
	t.Helper()
	share := models.Share{
		Amount:    decimal.RequireFromString(amount),
		QuoteDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&share).Error; err != nil {
		t.Fatalf("Failed to create share %s: %v", amount, err)
	}
	return share
}

// CreatePayment inserts a payment for a period
func CreatePayment(t *testing.T, db *gorm.DB, socioID, shareID uint, year, month int, paid bool) models.Payment {
	t.Helper()
	payment := models.Payment{SocioID: socioID, ShareID: shareID, Year: year, Month: month, IsPaid: paid}
	if paid {
		now := time.Date(year, time.Month(month), 10, 12, 0, 0, 0, time.UTC)
		payment.PaymentDate = &now
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}
	return payment
}
