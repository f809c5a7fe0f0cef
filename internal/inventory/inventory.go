package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/ventil-api/internal/types"
	"github.com/ksred/ventil-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrPossessionNotFound = errors.New("possession not found")
	ErrInvalidReference   = errors.New("referenced record does not exist")
)

// Service handles owners, items and possessions
type Service struct {
	db *Database
}

// NewService creates a new inventory service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

func (s *Service) CreateOwner(ctx context.Context) (*types.Owner, error) {
	owner := &types.Owner{}
	if err := s.db.CreateOwner(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", err)
	}
	log.Info().Uint("owner_id", owner.ID).Str("service", "inventory").Msg("owner created")
	return owner, nil
}

func (s *Service) GetOwner(ctx context.Context, id uint) (*types.Owner, error) {
	owner, err := s.db.GetOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("owner with id %d: %w", id, ErrOwnerNotFound)
	}
	return owner, nil
}

func (s *Service) ListOwners(ctx context.Context) ([]types.Owner, error) {
	return s.db.ListOwners(ctx)
}

// DeleteOwner removes the owner together with everything they possess.
// Trades naming the owner stay open; their execution will fail until cancelled.
func (s *Service) DeleteOwner(ctx context.Context, id uint) error {
	deleted, err := s.db.DeleteOwner(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("owner with id %d: %w", id, ErrOwnerNotFound)
	}
	log.Info().Uint("owner_id", id).Str("service", "inventory").Msg("owner deleted")
	return nil
}

func (s *Service) CreateItem(ctx context.Context, itemType string) (*types.Item, error) {
	item := &types.Item{ItemType: itemType}
	if err := s.db.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id uint) (*types.Item, error) {
	item, err := s.db.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item with id %d: %w", id, ErrItemNotFound)
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context) ([]types.Item, error) {
	return s.db.ListItems(ctx)
}

func (s *Service) UpdateItem(ctx context.Context, id uint, itemType string) (*types.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.ItemType = itemType
	if err := s.db.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id uint) error {
	deleted, err := s.db.DeleteItem(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("item with id %d: %w", id, ErrItemNotFound)
	}
	return nil
}

// CreatePossession gives an existing item instance to an existing owner
func (s *Service) CreatePossession(ctx context.Context, req PossessionRequest) (*PossessionResponse, error) {
	item, err := s.validateReferences(ctx, req)
	if err != nil {
		return nil, err
	}

	possession := &types.Possession{OwnerID: req.OwnerID, ItemID: req.ItemID}
	if err := s.db.CreatePossession(ctx, possession); err != nil {
		return nil, fmt.Errorf("failed to create possession: %w", err)
	}
	possession.Item = item

	log.Info().
		Uint("possession_id", possession.ID).
		Uint("owner_id", possession.OwnerID).
		Str("item_type", item.ItemType).
		Str("service", "inventory").
		Msg("possession created")

	return toPossessionResponse(possession), nil
}

func (s *Service) GetPossession(ctx context.Context, id uint) (*PossessionResponse, error) {
	possession, err := s.db.GetPossession(ctx, id)
	if err != nil {
		return nil, err
	}
	if possession == nil {
		return nil, fmt.Errorf("possession with id %d: %w", id, ErrPossessionNotFound)
	}
	return toPossessionResponse(possession), nil
}

func (s *Service) ListPossessions(ctx context.Context) ([]PossessionResponse, error) {
	possessions, err := s.db.ListPossessions(ctx)
	if err != nil {
		return nil, err
	}
	return toPossessionResponses(possessions), nil
}

func (s *Service) ListPossessionsByOwner(ctx context.Context, ownerID uint) ([]PossessionResponse, error) {
	if _, err := s.GetOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	possessions, err := s.db.ListPossessionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toPossessionResponses(possessions), nil
}

func (s *Service) ListPossessionsByItem(ctx context.Context, itemID uint) ([]PossessionResponse, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	possessions, err := s.db.ListPossessionsByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return toPossessionResponses(possessions), nil
}

// UpdatePossession reassigns a possession outside of any trade. Open trades
// offering it are not revalidated.
func (s *Service) UpdatePossession(ctx context.Context, id uint, req PossessionRequest) (*PossessionResponse, error) {
	item, err := s.validateReferences(ctx, req)
	if err != nil {
		return nil, err
	}

	possession, err := s.db.GetPossession(ctx, id)
	if err != nil {
		return nil, err
	}
	if possession == nil {
		return nil, fmt.Errorf("possession with id %d: %w", id, ErrPossessionNotFound)
	}

	possession.OwnerID = req.OwnerID
	possession.ItemID = req.ItemID
	if err := s.db.UpdatePossession(ctx, possession); err != nil {
		return nil, fmt.Errorf("failed to update possession: %w", err)
	}
	possession.Item = item

	return toPossessionResponse(possession), nil
}

func (s *Service) DeletePossession(ctx context.Context, id uint) error {
	deleted, err := s.db.DeletePossession(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("possession with id %d: %w", id, ErrPossessionNotFound)
	}
	return nil
}

func (s *Service) validateReferences(ctx context.Context, req PossessionRequest) (*types.Item, error) {
	owner, err := s.db.GetOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("owner with id %d: %w", req.OwnerID, ErrInvalidReference)
	}

	item, err := s.db.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item with id %d: %w", req.ItemID, ErrInvalidReference)
	}
	return item, nil
}

func toPossessionResponse(p *types.Possession) *PossessionResponse {
	return &PossessionResponse{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		ItemID:   p.ItemID,
		ItemType: p.ItemType(),
	}
}

func toPossessionResponses(possessions []types.Possession) []PossessionResponse {
	out := make([]PossessionResponse, 0, len(possessions))
	for i := range possessions {
		out = append(out, *toPossessionResponse(&possessions[i]))
	}
	return out
}

// GinHandlers contains HTTP handlers for inventory endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for inventory endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RegisterRoutes mounts owners, items and possessions on group
func (h *GinHandlers) RegisterRoutes(group *gin.RouterGroup) {
	owners := group.Group("/owners")
	{
		owners.GET("", h.ListOwnersHandler())
		owners.POST("", h.CreateOwnerHandler())
		owners.GET("/:id", h.GetOwnerHandler())
		owners.DELETE("/:id", h.DeleteOwnerHandler())
	}

	items := group.Group("/items")
	{
		items.GET("", h.ListItemsHandler())
		items.POST("", h.CreateItemHandler())
		items.GET("/:id", h.GetItemHandler())
		items.PUT("/:id", h.UpdateItemHandler())
		items.DELETE("/:id", h.DeleteItemHandler())
	}

	possessions := group.Group("/possessions")
	{
		possessions.GET("", h.ListPossessionsHandler())
		possessions.POST("", h.CreatePossessionHandler())
		possessions.GET("/:id", h.GetPossessionHandler())
		possessions.PUT("/:id", h.UpdatePossessionHandler())
		possessions.DELETE("/:id", h.DeletePossessionHandler())
		possessions.GET("/owner/:owner_id", h.ListPossessionsByOwnerHandler())
		possessions.GET("/item/:item_id", h.ListPossessionsByItemHandler())
	}
}

func (h *GinHandlers) ListOwnersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owners, err := h.service.ListOwners(c.Request.Context())
		handle(c, owners, err)
	}
}

func (h *GinHandlers) CreateOwnerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, err := h.service.CreateOwner(c.Request.Context())
		handle(c, owner, err)
	}
}

func (h *GinHandlers) GetOwnerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		owner, err := h.service.GetOwner(c.Request.Context(), id)
		handle(c, owner, err)
	}
}

func (h *GinHandlers) DeleteOwnerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		handleDelete(c, h.service.DeleteOwner(c.Request.Context(), id))
	}
}

func (h *GinHandlers) ListItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := h.service.ListItems(c.Request.Context())
		handle(c, items, err)
	}
}

func (h *GinHandlers) CreateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		item, err := h.service.CreateItem(c.Request.Context(), req.ItemType)
		handle(c, item, err)
	}
}

func (h *GinHandlers) GetItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		item, err := h.service.GetItem(c.Request.Context(), id)
		handle(c, item, err)
	}
}

func (h *GinHandlers) UpdateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		item, err := h.service.UpdateItem(c.Request.Context(), id, req.ItemType)
		handle(c, item, err)
	}
}

func (h *GinHandlers) DeleteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		handleDelete(c, h.service.DeleteItem(c.Request.Context(), id))
	}
}

func (h *GinHandlers) ListPossessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		possessions, err := h.service.ListPossessions(c.Request.Context())
		handle(c, possessions, err)
	}
}

func (h *GinHandlers) CreatePossessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PossessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		possession, err := h.service.CreatePossession(c.Request.Context(), req)
		handle(c, possession, err)
	}
}

func (h *GinHandlers) GetPossessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		possession, err := h.service.GetPossession(c.Request.Context(), id)
		handle(c, possession, err)
	}
}

func (h *GinHandlers) UpdatePossessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req PossessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		possession, err := h.service.UpdatePossession(c.Request.Context(), id, req)
		handle(c, possession, err)
	}
}

func (h *GinHandlers) DeletePossessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		handleDelete(c, h.service.DeletePossession(c.Request.Context(), id))
	}
}

func (h *GinHandlers) ListPossessionsByOwnerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := idParam(c, "owner_id")
		if !ok {
			return
		}
		possessions, err := h.service.ListPossessionsByOwner(c.Request.Context(), ownerID)
		handle(c, possessions, err)
	}
}

func (h *GinHandlers) ListPossessionsByItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := idParam(c, "item_id")
		if !ok {
			return
		}
		possessions, err := h.service.ListPossessionsByItem(c.Request.Context(), itemID)
		handle(c, possessions, err)
	}
}

// handle maps inventory errors before falling back to response.Handle
func handle(c *gin.Context, data interface{}, err error) {
	switch {
	case err == nil:
		response.Success(c, data)
	case errors.Is(err, ErrOwnerNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrPossessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidReference):
		response.BadRequest(c, err.Error())
	default:
		response.Handle(c, nil, err)
	}
}

func handleDelete(c *gin.Context, err error) {
	if err != nil {
		handle(c, nil, err)
		return
	}
	response.NoContent(c)
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
