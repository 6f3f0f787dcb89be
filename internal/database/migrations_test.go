package database

import (
	"errors"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type widget struct {
	Name string `gorm:"column:name;primaryKey"`
}

func TestApplyMigrationsRunsEachMigrationOnce(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	applied := 0
	migrations := []Migration{
		{
			Name: "create_widgets",
			Apply: func(db *gorm.DB) error {
				applied++
				return db.Migrator().CreateTable(&widget{})
			},
		},
	}

	if err := ApplyMigrations(database, migrations, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}
	if err := ApplyMigrations(database, migrations, zap.NewNop()); err != nil {
		testContext.Fatalf("second run should be a no-op: %v", err)
	}
	if applied != 1 {
		testContext.Fatalf("expected migration to run once, ran %d times", applied)
	}
	if !database.Migrator().HasTable(&widget{}) {
		testContext.Fatalf("expected widgets table to exist")
	}

	var record migrationRecord
	if err := database.Where("name = ?", "create_widgets").Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsStopsOnFailure(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	boom := errors.New("boom")
	laterRan := false
	migrations := []Migration{
		{Name: "fails", Apply: func(*gorm.DB) error { return boom }},
		{Name: "later", Apply: func(*gorm.DB) error { laterRan = true; return nil }},
	}

	err = ApplyMigrations(database, migrations, nil)
	if !errors.Is(err, boom) {
		testContext.Fatalf("expected wrapped migration error, got %v", err)
	}
	if laterRan {
		testContext.Fatalf("expected later migrations to be skipped after a failure")
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count ledger: %v", err)
	}
	if count != 0 {
		testContext.Fatalf("expected no ledger entries, got %d", count)
	}
}

func TestApplyMigrationsRollsBackFailedMigration(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	boom := errors.New("boom")
	migrations := []Migration{
		{
			Name: "half_done",
			Apply: func(db *gorm.DB) error {
				if err := db.Migrator().CreateTable(&widget{}); err != nil {
					return err
				}
				return boom
			},
		},
	}

	if err := ApplyMigrations(database, migrations, nil); !errors.Is(err, boom) {
		testContext.Fatalf("expected wrapped migration error, got %v", err)
	}
	if database.Migrator().HasTable(&widget{}) {
		testContext.Fatalf("expected partial migration to be rolled back")
	}
}

func TestApplyMigrationsToleratesLedgerRecordedElsewhere(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	migrations := []Migration{
		{
			Name: "create_widgets",
			Apply: func(db *gorm.DB) error {
				if err := db.Migrator().CreateTable(&widget{}); err != nil {
					return err
				}
				// another writer records the same migration before this one commits.
				return db.Create(&migrationRecord{Name: "create_widgets", AppliedAtSeconds: 1}).Error
			},
		},
	}

	if err := ApplyMigrations(database, migrations, zap.NewNop()); err != nil {
		testContext.Fatalf("expected duplicate ledger record to be tolerated: %v", err)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count ledger: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected exactly one ledger entry, got %d", count)
	}
}
