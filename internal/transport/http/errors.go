package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/school-rewards/internal/service"
	"go.uber.org/zap"
)

// Error codes returned in the response body.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeExceedsMax        = "EXCEEDS_MAX_ADJUSTMENT"
	CodeExceedsMaxDeposit = "EXCEEDS_MAX_DEPOSIT"
	CodeItemUnavailable   = "ITEM_UNAVAILABLE"
	CodeRestoreNotAllowed = "RESTORE_NOT_ALLOWED"
	CodeFeatureDisabled   = "FEATURE_DISABLED"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order; the first errors.Is match wins.
var errorTable = []errorMapping{
	{service.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{service.ErrInvalidAmount, http.StatusBadRequest, CodeValidation},
	{service.ErrNoteTooShort, http.StatusBadRequest, CodeValidation},
	{service.ErrWalletNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrItemNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
	{service.ErrInsufficientFunds, http.StatusUnprocessableEntity, CodeInsufficientFunds},
	{service.ErrInsufficientStock, http.StatusUnprocessableEntity, CodeInsufficientStock},
	{service.ErrExceedsMaxAdjustment, http.StatusUnprocessableEntity, CodeExceedsMax},
	{service.ErrExceedsMaxDeposit, http.StatusUnprocessableEntity, CodeExceedsMaxDeposit},
	{service.ErrItemUnavailable, http.StatusUnprocessableEntity, CodeItemUnavailable},
	{service.ErrRestoreNotAllowed, http.StatusUnprocessableEntity, CodeRestoreNotAllowed},
	{service.ErrFeatureDisabled, http.StatusForbidden, CodeFeatureDisabled},
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: msg}})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, CodeValidation, msg)
}

// writeError maps a service error onto a response. Unknown errors are logged
// and reported without detail.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			abort(c, m.status, m.code, err.Error())
			return
		}
	}
	log.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	abort(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
