package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/service"
)

type placeOrderReq struct {
	StudentID     uint64              `json:"student_id" binding:"required"`
	StoreItemID   uint64              `json:"store_item_id"`
	Quantity      int64               `json:"quantity"`
	Lines         []service.OrderLine `json:"lines"`
	PaymentMethod string              `json:"payment_method" binding:"required"`
	Notes         string              `json:"notes"`
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.orders.Place(c, service.NewOrder{
		StudentID:     req.StudentID,
		StoreItemID:   req.StoreItemID,
		Quantity:      req.Quantity,
		Lines:         req.Lines,
		PaymentMethod: method,
		Notes:         req.Notes,
	}, actorID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) listOrders(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	orders, err := h.orders.ListByStudent(c, id, model.OrderStatus(c.Query("status")))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type actionReq struct {
	AdminNotes string `json:"admin_notes"`
}

func (h *Handler) applyAction(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	action, err := model.ParseOrderAction(c.Param("action"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req actionReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	res, err := h.orders.Apply(c, service.ActionRequest{
		OrderID:    id,
		Action:     action,
		ActorID:    actorID(c),
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
