package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/school-rewards/internal/service"
	"github.com/shopspring/decimal"
)

type createItemReq struct {
	StoreID          uint64          `json:"store_id" binding:"required"`
	Name             string          `json:"name" binding:"required"`
	PricePoints      int64           `json:"price_points"`
	PriceCash        decimal.Decimal `json:"price_cash"`
	StockQuantity    int64           `json:"stock_quantity"`
	RequiresApproval bool            `json:"requires_approval"`
}

func (h *Handler) createItem(c *gin.Context) {
	var req createItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.inventory.CreateItem(c, service.NewItem{
		StoreID:          req.StoreID,
		Name:             req.Name,
		PricePoints:      req.PricePoints,
		PriceCash:        req.PriceCash,
		StockQuantity:    req.StockQuantity,
		RequiresApproval: req.RequiresApproval,
		ActorID:          actorID(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) getItem(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	item, err := h.inventory.GetItem(c, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) listItems(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	activeOnly, err := strconv.ParseBool(c.DefaultQuery("active", "false"))
	if err != nil {
		badRequest(c, "invalid active")
		return
	}
	items, err := h.inventory.ListItems(c, storeID, activeOnly)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type quantityReq struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

func (h *Handler) restock(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req quantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.inventory.Restock(c, id, req.Quantity, actorID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type restoreReq struct {
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
	OrderID  uint64 `json:"order_id" binding:"required"`
}

func (h *Handler) restore(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req restoreReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.inventory.Restore(c, req.OrderID, id, req.Quantity, actorID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type activeReq struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) setActive(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req activeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.inventory.SetActive(c, id, *req.Active)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
