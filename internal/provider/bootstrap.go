package provider

import (
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/database"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	migrationCreateUsersTable = "2026-10-01_create_users_table"
	migrationSeedDefaultUser  = "2026-10-01_seed_default_user"
)

// DefaultSeedUsername is the user inserted into an empty store on bootstrap.
const DefaultSeedUsername = "paulw"

func bootstrapMigrations(clock func() time.Time) []database.Migration {
	return []database.Migration{
		{Name: migrationCreateUsersTable, Apply: createUsersTable},
		{Name: migrationSeedDefaultUser, Apply: seedDefaultUser(clock)},
	}
}

// createUsersTable leaves an existing users table untouched, including one created
// by another process between the check and the create.
func createUsersTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&directory.Record{}) {
		return nil
	}
	if err := db.Migrator().CreateTable(&directory.Record{}); err != nil {
		if db.Migrator().HasTable(&directory.Record{}) {
			return nil
		}
		return err
	}
	return nil
}

func seedDefaultUser(clock func() time.Time) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&directory.Record{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		firstName, lastName, email := "paul", "watson", "paul@test.com"
		birthDate := clock().UTC()
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&directory.Record{
			Username:  DefaultSeedUsername,
			FirstName: &firstName,
			LastName:  &lastName,
			Email:     &email,
			BirthDate: &birthDate,
		}).Error
	}
}
