package migrations

import (
	"github.com/ksred/ventil-api/internal/types"
	"gorm.io/gorm"
)

// AddTradeExecutions creates the execution audit table and its indexes
func AddTradeExecutions(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.TradeExecution{}); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_trade_executions_trader_1
		 ON trade_executions(trader_1_id)`,

		`CREATE INDEX IF NOT EXISTS idx_trade_executions_trader_2
		 ON trade_executions(trader_2_id)`,

		`CREATE INDEX IF NOT EXISTS idx_trade_executions_executed_at
		 ON trade_executions(executed_at)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
