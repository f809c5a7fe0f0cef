package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/ventil-api/internal/observability"
	"github.com/ksred/ventil-api/internal/types"
	"github.com/rs/zerolog/log"
)

// MissingPolicy decides what execution does with an offered possession that
// no longer exists when the trade commits
type MissingPolicy string

const (
	// MissingSkip leaves the missing possession out and transfers the rest
	MissingSkip MissingPolicy = "skip"
	// MissingAbort rolls the whole transfer back
	MissingAbort MissingPolicy = "abort"
)

// ParseMissingPolicy maps a config value to a MissingPolicy
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case MissingSkip, "":
		return MissingSkip, nil
	case MissingAbort:
		return MissingAbort, nil
	}
	return "", fmt.Errorf("unknown missing possession policy %q", s)
}

// Execution describes a committed trade
type Execution struct {
	ExecutionID string    `json:"execution_id"`
	TradeID     uint64    `json:"trade_id"`
	Trader1ID   uint      `json:"trader_1_id"`
	Trader2ID   uint      `json:"trader_2_id"`
	Trader1Gave []uint    `json:"trader_1_gave"`
	Trader2Gave []uint    `json:"trader_2_gave"`
	Skipped     []uint    `json:"skipped"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// Executor swaps ownership of every offered possession in one transaction
type Executor struct {
	store   Store
	missing MissingPolicy
	now     func() time.Time
}

func NewExecutor(store Store, missing MissingPolicy) *Executor {
	if missing == "" {
		missing = MissingSkip
	}
	return &Executor{
		store:   store,
		missing: missing,
		now:     time.Now,
	}
}

// Execute transfers trader 1's offer to trader 2 and trader 2's offer to
// trader 1. The caller must hold the registry lock and have observed both
// accept flags set. Any error leaves the store untouched.
func (e *Executor) Execute(ctx context.Context, t *Trade) (*Execution, error) {
	logger := log.With().
		Uint64("trade_id", t.ID).
		Str("service", "trade_executor").
		Logger()

	logger.Info().
		Uint("trader_1_id", t.Trader1.OwnerID).
		Uint("trader_2_id", t.Trader2.OwnerID).
		Int("trader_1_items", len(t.Trader1.Items)).
		Int("trader_2_items", len(t.Trader2.Items)).
		Msg("executing trade")

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	exec := &Execution{
		ExecutionID: "EXE_" + uuid.New().String(),
		TradeID:     t.ID,
		Trader1ID:   t.Trader1.OwnerID,
		Trader2ID:   t.Trader2.OwnerID,
		Trader1Gave: []uint{},
		Trader2Gave: []uint{},
		Skipped:     []uint{},
	}

	exec.Trader1Gave, err = e.transfer(ctx, tx, t.Trader1.Items, t.Trader2.OwnerID, exec)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	exec.Trader2Gave, err = e.transfer(ctx, tx, t.Trader2.Items, t.Trader1.OwnerID, exec)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	exec.ExecutedAt = e.now()
	record := &types.TradeExecution{
		ExecutionID: exec.ExecutionID,
		TradeID:     exec.TradeID,
		Trader1ID:   exec.Trader1ID,
		Trader2ID:   exec.Trader2ID,
		Trader1Gave: exec.Trader1Gave,
		Trader2Gave: exec.Trader2Gave,
		Skipped:     exec.Skipped,
		ExecutedAt:  exec.ExecutedAt,
	}
	if err := tx.RecordExecution(ctx, record); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	if len(exec.Skipped) > 0 {
		observability.RecordSkippedPossessions(len(exec.Skipped))
		logger.Warn().
			Interface("skipped", exec.Skipped).
			Msg("offered possessions no longer exist and were left out of the trade")
	}

	logger.Info().
		Str("execution_id", exec.ExecutionID).
		Msg("trade executed successfully")

	return exec, nil
}

// transfer reassigns each listed possession to newOwner and returns the ids
// that moved, in offer order
func (e *Executor) transfer(ctx context.Context, tx Tx, items []uint, newOwner uint, exec *Execution) ([]uint, error) {
	moved := make([]uint, 0, len(items))
	for _, id := range items {
		possession, err := tx.FindPossessionByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if possession == nil {
			if e.missing == MissingAbort {
				return nil, possessionNotFound(id)
			}
			exec.Skipped = append(exec.Skipped, id)
			continue
		}

		if err := tx.UpdatePossessionOwner(ctx, id, newOwner); err != nil {
			return nil, err
		}
		moved = append(moved, id)
	}
	return moved, nil
}
