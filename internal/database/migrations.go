package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "sqldirectory_migrations"
}

// Migration is a named schema or data change applied at most once per store.
type Migration struct {
	Name  string
	Apply func(*gorm.DB) error
}

// ApplyMigrations runs every migration that is not yet recorded in the ledger, in order.
// Each migration and its ledger record commit together; a record already written by
// another writer is left as is.
func ApplyMigrations(db *gorm.DB, migrations []Migration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		return fmt.Errorf("database: migration ledger: %w", err)
	}

	for _, migration := range migrations {
		applied := false
		err := db.Transaction(func(tx *gorm.DB) error {
			var record migrationRecord
			err := tx.Where("name = ?", migration.Name).Take(&record).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := migration.Apply(tx); err != nil {
				return fmt.Errorf("database: migration %s: %w", migration.Name, err)
			}
			appliedAt := time.Now().UTC().Unix()
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&migrationRecord{Name: migration.Name, AppliedAtSeconds: appliedAt}).Error; err != nil {
				return err
			}
			applied = true
			return nil
		})
		if err != nil {
			return err
		}
		if applied {
			logger.Info("database migration applied", zap.String("migration", migration.Name))
		}
	}
	return nil
}
