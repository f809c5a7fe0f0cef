package inventory

// CreateItemRequest is the body of POST /items and PUT /items/:id
type CreateItemRequest struct {
	ItemType string `json:"item_type" binding:"required,max=255"`
}

// PossessionRequest is the body of POST /possessions and PUT /possessions/:id
type PossessionRequest struct {
	OwnerID uint `json:"owner_id" binding:"required"`
	ItemID  uint `json:"item_id" binding:"required"`
}

// PossessionResponse is a possession together with its item type
type PossessionResponse struct {
	ID       uint   `json:"id"`
	OwnerID  uint   `json:"owner_id"`
	ItemID   uint   `json:"item_id"`
	ItemType string `json:"item_type,omitempty"`
}
