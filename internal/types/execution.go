package types

import "time"

// TradeExecution is the durable record of a trade that committed.
// TradeID is only meaningful within the process that ran the trade, so
// ExecutionID is the reference handed out to clients.
type TradeExecution struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ExecutionID string    `gorm:"uniqueIndex" json:"execution_id"`
	TradeID     uint64    `json:"trade_id"`
	Trader1ID   uint      `gorm:"column:trader_1_id" json:"trader_1_id"`
	Trader2ID   uint      `gorm:"column:trader_2_id" json:"trader_2_id"`
	Trader1Gave IDList    `gorm:"column:trader_1_gave;type:text" json:"trader_1_gave"`
	Trader2Gave IDList    `gorm:"column:trader_2_gave;type:text" json:"trader_2_gave"`
	Skipped     IDList    `gorm:"type:text" json:"skipped"`
	ExecutedAt  time.Time `json:"executed_at"`
	CreatedAt   time.Time `json:"created_at"`
}
