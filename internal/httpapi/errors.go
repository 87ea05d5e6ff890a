package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/orders"
	"github.com/roach88/vaniya/internal/shop"
	"github.com/roach88/vaniya/internal/tables"
)

// ErrorResponse is the body of every non-2xx response.
// Code is machine-oriented snake_case; Message is short and human-readable.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func abort(c *gin.Context, status int, code, message string, err error) {
	resp := ErrorResponse{Code: code, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string, err error) {
	abort(c, http.StatusBadRequest, "validation_error", message, err)
}

func notFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, "not_found", message, nil)
}

// fail maps a data layer error to a response.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder), tables.IsInvalidError(err):
		abort(c, http.StatusBadRequest, "validation_error", op+" rejected", err)
	case errors.Is(err, orders.ErrOrderNotFound):
		abort(c, http.StatusNotFound, "not_found", op+" failed", err)
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, tables.ErrDuplicateID), tables.IsConflictError(err):
		abort(c, http.StatusConflict, "conflict", op+" conflicts with current state", err)
	case errors.Is(err, shop.ErrUnknownTable):
		abort(c, http.StatusNotFound, "unknown_table", op+" failed", err)
	case tables.IsQuotaError(err):
		abort(c, http.StatusInsufficientStorage, "quota_exceeded", "local storage is full", err)
	default:
		h.log.Error(op+" failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "internal_error", op+" failed", nil)
	}
}
