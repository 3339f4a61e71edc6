package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Tag{},
		&models.Member{},
		&models.MemberTag{},
		&models.Introduction{},
		&models.Event{},
		&models.Booking{},
		&models.Payment{},
	); err != nil {
		return err
	}

	return ensureOpenPairIndex(db)
}

// ensureOpenPairIndex enforces at most one non-declined introduction per
// canonical member pair. SQLite and Postgres support partial unique indexes.
// MySQL does not, so there the same constraint is expressed through a stored
// generated column: open rows share the empty key per pair, declined rows key
// on their own id and never collide.
func ensureOpenPairIndex(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		stmt := `CREATE UNIQUE INDEX IF NOT EXISTS idx_introductions_open_pair
			ON introductions (member_a_id, member_b_id)
			WHERE status <> 'declined'`
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create open pair index: %w", err)
		}
	case "mysql":
		m := db.Migrator()
		if !m.HasColumn(&models.Introduction{}, "open_pair_key") {
			stmt := `ALTER TABLE introductions
				ADD COLUMN open_pair_key VARCHAR(36)
				GENERATED ALWAYS AS (IF(status = 'declined', id, '')) STORED`
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create open pair key column: %w", err)
			}
		}
		if !m.HasIndex(&models.Introduction{}, "idx_introductions_open_pair") {
			stmt := `CREATE UNIQUE INDEX idx_introductions_open_pair
				ON introductions (member_a_id, member_b_id, open_pair_key)`
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create open pair index: %w", err)
			}
		}
	}
	return nil
}

// SeedData populates the default tag catalogue used by the matcher. Existing
// tags are left untouched.
func SeedData(db *gorm.DB) error {
	defaults := []models.Tag{
		{Name: "Technology", Category: models.TagCategoryIndustry},
		{Name: "Finance", Category: models.TagCategoryIndustry},
		{Name: "Property", Category: models.TagCategoryIndustry},
		{Name: "Legal", Category: models.TagCategoryIndustry},
		{Name: "Investment", Category: models.TagCategoryIndustry},
		{Name: "Marketing", Category: models.TagCategoryIndustry},

		{Name: "Golf", Category: models.TagCategoryInterest},
		{Name: "Sailing", Category: models.TagCategoryInterest},
		{Name: "Fine Dining", Category: models.TagCategoryInterest},
		{Name: "Art", Category: models.TagCategoryInterest},

		{Name: "Looking for investors", Category: models.TagCategoryNeed},
		{Name: "Looking for legal advice", Category: models.TagCategoryNeed},
		{Name: "Looking for marketing support", Category: models.TagCategoryNeed},

		{Name: "Executive coaching", Category: models.TagCategoryService},
		{Name: "Wealth management", Category: models.TagCategoryService},
	}

	for _, tag := range defaults {
		err := db.Where(models.Tag{Name: tag.Name, Category: tag.Category}).
			Attrs(tag).
			FirstOrCreate(&models.Tag{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
