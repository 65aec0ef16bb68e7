package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/service"
	"github.com/shopspring/decimal"
)

func uintParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

type openWalletReq struct {
	StudentID uint64 `json:"student_id" binding:"required"`
	ChurchID  uint64 `json:"church_id" binding:"required"`
}

func (h *Handler) openWallet(c *gin.Context) {
	var req openWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	w, err := h.ledger.OpenWallet(c, req.StudentID, req.ChurchID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) balance(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	points, err := h.ledger.GetBalance(c, id, model.CurrencyPoints)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	cash, err := h.ledger.GetBalance(c, id, model.CurrencyCash)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": id, "points": points.IntPart(), "cash": cash})
}

func (h *Handler) history(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}
	txs, err := h.ledger.History(c, id, model.Currency(c.Query("currency")), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) reconcile(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	rec, err := h.ledger.Reconcile(c, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type adjustReq struct {
	Delta int64  `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"required"`
}

func (h *Handler) adjust(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	var req adjustReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.adjustments.AdjustPoints(c, service.AdjustRequest{
		StudentID: id,
		Delta:     req.Delta,
		Note:      req.Note,
		ActorID:   actorID(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": res.Transaction.ID,
		"transaction":    res.Transaction,
		"wallet":         res.Wallet,
	})
}

type depositReq struct {
	Amount    decimal.Decimal `json:"amount"`
	ReceiptID string          `json:"receipt_id" binding:"required,max=64"`
	Note      string          `json:"note" binding:"max=255"`
}

func (h *Handler) deposit(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	var req depositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.deposits.DepositCash(c, service.DepositRequest{
		StudentID: id,
		Amount:    req.Amount,
		ReceiptID: req.ReceiptID,
		Note:      req.Note,
		ActorID:   actorID(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": res.Transaction.ID,
		"transaction":    res.Transaction,
		"wallet":         res.Wallet,
	})
}

type awardReq struct {
	Kind      string `json:"kind" binding:"required,oneof=attendance trip"`
	Reference string `json:"reference" binding:"required,max=64"`
}

func (h *Handler) award(c *gin.Context) {
	id, ok := uintParam(c, "student_id")
	if !ok {
		return
	}
	var req awardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	award := h.awards.AwardAttendance
	if req.Kind == "trip" {
		award = h.awards.AwardTrip
	}
	t, err := award(c, id, req.Reference, actorID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusOK, gin.H{"awarded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"awarded": true, "transaction_id": t.ID, "transaction": t})
}
