package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
)

func (h *Handler) getPointsConfig(c *gin.Context) {
	id, ok := uintParam(c, "church_id")
	if !ok {
		return
	}
	cfg, err := h.configs.Get(c, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type pointsConfigReq struct {
	AttendancePoints           int64           `json:"attendance_points" binding:"gte=0"`
	TripPoints                 int64           `json:"trip_points" binding:"gte=0"`
	MaxTeacherAdjustment       int64           `json:"max_teacher_adjustment" binding:"gte=0"`
	IsTeacherAdjustmentEnabled bool            `json:"is_teacher_adjustment_enabled"`
	IsStoreEnabled             bool            `json:"is_store_enabled"`
	IsCashEnabled              bool            `json:"is_cash_enabled"`
	MaxCashDeposit             decimal.Decimal `json:"max_cash_deposit"`
}

func (h *Handler) putPointsConfig(c *gin.Context) {
	id, ok := uintParam(c, "church_id")
	if !ok {
		return
	}
	var req pointsConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cfg, err := h.configs.Upsert(c, model.PointsConfig{
		ChurchID:                   id,
		AttendancePoints:           req.AttendancePoints,
		TripPoints:                 req.TripPoints,
		MaxTeacherAdjustment:       req.MaxTeacherAdjustment,
		IsTeacherAdjustmentEnabled: req.IsTeacherAdjustmentEnabled,
		IsStoreEnabled:             req.IsStoreEnabled,
		IsCashEnabled:              req.IsCashEnabled,
		MaxCashDeposit:             req.MaxCashDeposit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
