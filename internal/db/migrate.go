package db

import (
	"errors" // Sentinel errors
	"fmt"    // Error wrapping
	"time"   // Migration timestamps

	"group_savings/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/sqlite"      // SQLite driver for GORM (development and tests)
	"gorm.io/gorm"               // GORM ORM library
)

// ErrSchemaOutdated is returned when the database is behind the compiled-in migrations
var ErrSchemaOutdated = errors.New("database schema is out of date, run cmd/migrate")

// migration is one schema version
type migration struct {
	version int                  // Monotonic version number
	name    string               // Short description
	up      func(*gorm.DB) error // Applies the change
}

// migrations is the ordered, append-only list of schema versions
var migrations = []migration{
	{1, "initial schema", func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&domain.Group{},
			&domain.Profile{},
			&domain.GroupSavings{},
			&domain.Payment{},
			&domain.PaymentHistory{},
			&domain.AdminRight{},
			&domain.Project{},
		)
	}},
	{2, "password reset otps", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&domain.PasswordResetOTP{})
	}},
}

// LatestVersion is the schema version this binary expects
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

// Open connects to the database with the given driver ("mysql" or "sqlite")
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// Migrate applies every pending migration in order and records it
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	current, err := currentVersion(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue // Already applied
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		rec := domain.SchemaMigration{Version: m.version, Name: m.name, AppliedAt: time.Now()}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		logrus.WithFields(logrus.Fields{
			"version": m.version, // Applied version
			"name":    m.name,    // Migration name
		}).Info("Migration applied")
	}
	return nil
}

// CheckSchema fails when migrations are missing, so the server never runs against a drifted schema
func CheckSchema(db *gorm.DB) error {
	if !db.Migrator().HasTable(&domain.SchemaMigration{}) {
		return ErrSchemaOutdated
	}
	current, err := currentVersion(db)
	if err != nil {
		return err
	}
	if current < LatestVersion() {
		return fmt.Errorf("%w: at version %d, want %d", ErrSchemaOutdated, current, LatestVersion())
	}
	return nil
}

func currentVersion(db *gorm.DB) (int, error) {
	var version int
	err := db.Model(&domain.SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
