package data

import (
	"fmt"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&giveaway.Setting{},
	&giveaway.Giveaway{},
}

// Migrate creates or updates the tables owned by the giveaway engine. The
// leveling and invite tables belong to other subsystems and are only read.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
