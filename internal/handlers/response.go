package handlers

import (
	"errors"
	"net/http"

	"order_ledger/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrMissingProductName, http.StatusBadRequest},
	{services.ErrInvalidID, http.StatusBadRequest},
	{services.ErrInvalidPatch, http.StatusBadRequest},
	{services.ErrInvalidStatus, http.StatusBadRequest},
	{services.ErrInvalidTransition, http.StatusBadRequest},
	{services.ErrInvalidAmount, http.StatusBadRequest},
	{services.ErrVariantNotFound, http.StatusNotFound},
	{services.ErrOrderNotFound, http.StatusNotFound},
	{services.ErrSupplierNotFound, http.StatusNotFound},
	{services.ErrArchiveNotFound, http.StatusNotFound},
	{services.ErrNoSupplierPrice, http.StatusUnprocessableEntity},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError logs err with the given context fields and writes the JSON
// error body. Server side failures get a generic message.
func (h *APIHandler) respondError(c *gin.Context, err error, fields ...zap.Field) {
	status := statusFor(err)
	fields = append(fields,
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Int("http_status", status),
		zap.Error(err),
	)

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	h.log.Info("request rejected", fields...)
	c.JSON(status, gin.H{"error": err.Error()})
}
