package migrations

import (
	"github.com/ksred/ventil-api/internal/types"
	"gorm.io/gorm"
)

// CreateInventory creates the owner, item and possession tables
func CreateInventory(db *gorm.DB) error {
	// Order matters: possessions reference both owners and items
	if err := db.AutoMigrate(&types.Owner{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.Item{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.Possession{}); err != nil {
		return err
	}

	indexes := []string{
		// Possessions are looked up by owner for listings and trade validation
		`CREATE INDEX IF NOT EXISTS idx_possessions_owner_id
		 ON possessions(owner_id)`,

		`CREATE INDEX IF NOT EXISTS idx_possessions_item_id
		 ON possessions(item_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
