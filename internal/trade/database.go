package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/ksred/ventil-api/internal/types"
	"gorm.io/gorm"
)

// Database implements Store on top of GORM
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) FindOwnerByID(ctx context.Context, id uint) (*types.Owner, error) {
	var owner types.Owner
	if err := d.db.WithContext(ctx).First(&owner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch owner: %w", err)
	}
	return &owner, nil
}

func (d *Database) FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error) {
	return findPossession(d.db.WithContext(ctx), id)
}

// Begin starts a transaction. The returned Tx must be committed or rolled back.
func (d *Database) Begin(ctx context.Context) (Tx, error) {
	tx := d.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return &gormTx{tx: tx}, nil
}

// GetExecution retrieves an execution record by its execution id
func (d *Database) GetExecution(ctx context.Context, executionID string) (*types.TradeExecution, error) {
	var rec types.TradeExecution
	if err := d.db.WithContext(ctx).Where("execution_id = ?", executionID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetOwnerExecutions returns every execution the owner took part in, newest first
func (d *Database) GetOwnerExecutions(ctx context.Context, ownerID uint) ([]types.TradeExecution, error) {
	var recs []types.TradeExecution
	if err := d.db.WithContext(ctx).
		Where("trader_1_id = ? OR trader_2_id = ?", ownerID, ownerID).
		Order("executed_at DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch executions for owner: %w", err)
	}
	return recs, nil
}

type gormTx struct {
	tx   *gorm.DB
	done bool
}

func (g *gormTx) FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error) {
	return findPossession(g.tx.WithContext(ctx), id)
}

func (g *gormTx) UpdatePossessionOwner(ctx context.Context, possessionID, newOwnerID uint) error {
	result := g.tx.WithContext(ctx).
		Model(&types.Possession{}).
		Where("id = ?", possessionID).
		Update("owner_id", newOwnerID)
	if result.Error != nil {
		return fmt.Errorf("failed to update owner of possession %d: %w", possessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("possession %d: %w", possessionID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (g *gormTx) RecordExecution(ctx context.Context, rec *types.TradeExecution) error {
	if err := g.tx.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save execution record: %w", err)
	}
	return nil
}

func (g *gormTx) Commit() error {
	if g.done {
		return errors.New("transaction already finished")
	}
	g.done = true
	return g.tx.Commit().Error
}

func (g *gormTx) Rollback() error {
	if g.done {
		return nil
	}
	g.done = true
	return g.tx.Rollback().Error
}

func findPossession(db *gorm.DB, id uint) (*types.Possession, error) {
	var possession types.Possession
	if err := db.Preload("Item").First(&possession, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch possession: %w", err)
	}
	return &possession, nil
}
