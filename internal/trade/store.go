package trade

import (
	"context"

	"github.com/ksred/ventil-api/internal/types"
)

// Store is the persistence the trade core needs. Lookups return nil, nil
// when the row does not exist.
type Store interface {
	FindOwnerByID(ctx context.Context, id uint) (*types.Owner, error)
	FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open store transaction. Abandoning a Tx without Commit must be
// followed by Rollback; Rollback after Commit is a no-op.
type Tx interface {
	FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error)
	UpdatePossessionOwner(ctx context.Context, possessionID, newOwnerID uint) error
	RecordExecution(ctx context.Context, rec *types.TradeExecution) error
	Commit() error
	Rollback() error
}
