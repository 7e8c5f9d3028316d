package model

import (
	"fmt"

	"gorm.io/gorm"
)

// allModels lists every table in creation order.
var allModels = []any{
	&QuestPlayer{},
	&ActiveQuest{},
	&QuestReroll{},
	&QuestReward{},
	&QuestHistory{},
	&AuditLog{},
}

// AutoMigrate creates or updates every table, naming the one that failed.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range allModels {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
