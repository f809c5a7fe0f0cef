package inventory

import (
	"context"
	"errors"

	"github.com/ksred/ventil-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOwner(ctx context.Context, owner *types.Owner) error {
	return d.db.WithContext(ctx).Create(owner).Error
}

func (d *Database) GetOwner(ctx context.Context, id uint) (*types.Owner, error) {
	var owner types.Owner
	if err := d.db.WithContext(ctx).First(&owner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &owner, nil
}

func (d *Database) ListOwners(ctx context.Context) ([]types.Owner, error) {
	var owners []types.Owner
	if err := d.db.WithContext(ctx).Order("id").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

// DeleteOwner removes the owner; their possessions go with them
func (d *Database) DeleteOwner(ctx context.Context, id uint) (bool, error) {
	result := d.db.WithContext(ctx).Delete(&types.Owner{}, id)
	return result.RowsAffected > 0, result.Error
}

func (d *Database) CreateItem(ctx context.Context, item *types.Item) error {
	return d.db.WithContext(ctx).Create(item).Error
}

func (d *Database) GetItem(ctx context.Context, id uint) (*types.Item, error) {
	var item types.Item
	if err := d.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (d *Database) ListItems(ctx context.Context) ([]types.Item, error) {
	var items []types.Item
	if err := d.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (d *Database) UpdateItem(ctx context.Context, item *types.Item) error {
	return d.db.WithContext(ctx).Save(item).Error
}

func (d *Database) DeleteItem(ctx context.Context, id uint) (bool, error) {
	result := d.db.WithContext(ctx).Delete(&types.Item{}, id)
	return result.RowsAffected > 0, result.Error
}

func (d *Database) CreatePossession(ctx context.Context, possession *types.Possession) error {
	return d.db.WithContext(ctx).Omit("Owner", "Item").Create(possession).Error
}

func (d *Database) GetPossession(ctx context.Context, id uint) (*types.Possession, error) {
	var possession types.Possession
	if err := d.db.WithContext(ctx).Preload("Item").First(&possession, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &possession, nil
}

func (d *Database) ListPossessions(ctx context.Context) ([]types.Possession, error) {
	return d.findPossessions(ctx, d.db)
}

func (d *Database) ListPossessionsByOwner(ctx context.Context, ownerID uint) ([]types.Possession, error) {
	return d.findPossessions(ctx, d.db.Where("owner_id = ?", ownerID))
}

func (d *Database) ListPossessionsByItem(ctx context.Context, itemID uint) ([]types.Possession, error) {
	return d.findPossessions(ctx, d.db.Where("item_id = ?", itemID))
}

func (d *Database) UpdatePossession(ctx context.Context, possession *types.Possession) error {
	return d.db.WithContext(ctx).
		Model(&types.Possession{ID: possession.ID}).
		Updates(map[string]interface{}{
			"owner_id": possession.OwnerID,
			"item_id":  possession.ItemID,
		}).Error
}

func (d *Database) DeletePossession(ctx context.Context, id uint) (bool, error) {
	result := d.db.WithContext(ctx).Delete(&types.Possession{}, id)
	return result.RowsAffected > 0, result.Error
}

func (d *Database) findPossessions(ctx context.Context, query *gorm.DB) ([]types.Possession, error) {
	var possessions []types.Possession
	if err := query.WithContext(ctx).Preload("Item").Order("id").Find(&possessions).Error; err != nil {
		return nil, err
	}
	return possessions, nil
}
