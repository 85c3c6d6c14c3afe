package httpserver

import (
	"errors"
	"log"
	"net/http"

	"frunk-store/internal/domain"
	"frunk-store/internal/service/payment"
	usersvc "frunk-store/internal/service/user"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to status codes. Server-side failures are
// logged and answered with a generic message.
func writeError(c *gin.Context, logger *log.Logger, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalid):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, usersvc.ErrInvalidCredentials), errors.Is(err, usersvc.ErrInvalidToken):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, payment.ErrPaymentIncomplete):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, "service not configured"
	case errors.Is(err, domain.ErrUpstream):
		status, msg = http.StatusBadGateway, "upstream provider error"
	}
	if status >= http.StatusInternalServerError {
		logger.Printf("http: %s failed status=%d err=%v", op, status, err)
	}
	c.JSON(status, gin.H{"error": msg})
}
