package types

import (
	"time"
)

// Owner is an identity capable of holding possessions
type Owner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a kind of thing that can be possessed, labelled by its type
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemType  string    `gorm:"size:255;not null" json:"item_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Possession binds one item instance to exactly one current owner
type Possession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null" json:"owner_id"`
	Owner     *Owner    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ItemID    uint      `gorm:"not null" json:"item_id"`
	Item      *Item     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemType returns the label of the possessed item when it was preloaded
func (p *Possession) ItemType() string {
	if p.Item == nil {
		return ""
	}
	return p.Item.ItemType
}
