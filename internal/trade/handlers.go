package trade

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/ventil-api/pkg/response"
)

// CreateTradeRequest is the body of POST /trades
type CreateTradeRequest struct {
	Trader1ID uint `json:"trader_1_id" binding:"required"`
	Trader2ID uint `json:"trader_2_id" binding:"required"`
}

// TradeItemRequest is the body of the add-item and remove-item endpoints
type TradeItemRequest struct {
	OwnerID uint `json:"owner_id" binding:"required"`
	ItemID  uint `json:"item_id" binding:"required"`
}

// GinHandlers contains HTTP handlers for trade endpoints
type GinHandlers struct {
	registry *Registry
	db       *Database
}

// NewGinHandlers creates a new set of HTTP handlers for trade endpoints
func NewGinHandlers(registry *Registry, db *Database) *GinHandlers {
	return &GinHandlers{
		registry: registry,
		db:       db,
	}
}

// ListTradesHandler handles GET /trades
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c, h.registry.List())
	}
}

// GetTradeHandler handles GET /trades/:trade_id
func (h *GinHandlers) GetTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		t, err := h.registry.Get(id)
		response.Handle(c, t, err)
	}
}

// CreateTradeHandler handles POST /trades
// Request body should name two distinct existing owners
func (h *GinHandlers) CreateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		t, err := h.registry.Create(c.Request.Context(), req.Trader1ID, req.Trader2ID)
		if err == nil {
			c.Header("Location", fmt.Sprintf("/api/v1/trades/%d", t.ID))
		}
		response.Handle(c, t, err)
	}
}

// AddItemHandler handles POST /trades/:trade_id/add-item
func (h *GinHandlers) AddItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		var req TradeItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		t, err := h.registry.AddItem(c.Request.Context(), id, req.OwnerID, req.ItemID)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, t)
	}
}

// RemoveItemHandler handles DELETE /trades/:trade_id/remove-item
func (h *GinHandlers) RemoveItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		var req TradeItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		t, err := h.registry.RemoveItem(c.Request.Context(), id, req.OwnerID, req.ItemID)
		response.Handle(c, t, err)
	}
}

// AcceptHandler handles PUT /trades/:trade_id/accept?owner_id=
// Responds 200 with the updated trade, or 201 with the execution when this
// toggle completed the trade
func (h *GinHandlers) AcceptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		ownerID, err := strconv.ParseUint(c.Query("owner_id"), 10, 0)
		if err != nil {
			response.BadRequest(c, "owner_id query parameter is required")
			return
		}

		result, err := h.registry.AcceptToggle(c.Request.Context(), id, uint(ownerID))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		writeAcceptResult(c, result)
	}
}

// ExecuteHandler handles POST /trades/:trade_id/execute
// Retries a trade whose previous execution failed
func (h *GinHandlers) ExecuteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		result, err := h.registry.Execute(c.Request.Context(), id)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		writeAcceptResult(c, result)
	}
}

// CancelTradeHandler handles DELETE /trades/:trade_id
func (h *GinHandlers) CancelTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tradeIDParam(c)
		if !ok {
			return
		}

		if _, err := h.registry.Cancel(id); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.NoContent(c)
	}
}

// GetExecutionHandler handles GET /executions/:execution_id
func (h *GinHandlers) GetExecutionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.db.GetExecution(c.Request.Context(), c.Param("execution_id"))
		response.Handle(c, rec, err)
	}
}

// GetOwnerExecutionsHandler handles GET /executions/owner/:owner_id
func (h *GinHandlers) GetOwnerExecutionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := strconv.ParseUint(c.Param("owner_id"), 10, 0)
		if err != nil {
			response.BadRequest(c, "invalid owner id")
			return
		}

		recs, err := h.db.GetOwnerExecutions(c.Request.Context(), uint(ownerID))
		response.Handle(c, recs, err)
	}
}

// RegisterRoutes mounts the trade and execution endpoints on group
func (h *GinHandlers) RegisterRoutes(group *gin.RouterGroup) {
	trades := group.Group("/trades")
	{
		trades.GET("", h.ListTradesHandler())
		trades.POST("", h.CreateTradeHandler())
		trades.GET("/:trade_id", h.GetTradeHandler())
		trades.DELETE("/:trade_id", h.CancelTradeHandler())
		trades.POST("/:trade_id/add-item", h.AddItemHandler())
		trades.DELETE("/:trade_id/remove-item", h.RemoveItemHandler())
		trades.PUT("/:trade_id/accept", h.AcceptHandler())
		trades.POST("/:trade_id/execute", h.ExecuteHandler())
	}

	executions := group.Group("/executions")
	{
		executions.GET("/:execution_id", h.GetExecutionHandler())
		executions.GET("/owner/:owner_id", h.GetOwnerExecutionsHandler())
	}
}

func writeAcceptResult(c *gin.Context, result *AcceptResult) {
	if result.Executed {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

func tradeIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("trade_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid trade id")
		return 0, false
	}
	return id, true
}
