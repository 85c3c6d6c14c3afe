package httpserver

import (
	"errors"
	"io"
	"log"
	"net/http"

	"frunk-store/internal/domain"
	"frunk-store/internal/payments"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

func webhookHandler(logger *log.Logger, svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
			return
		}
		signature := c.GetHeader(payments.SignatureHeader)

		_, err = svc.HandleWebhook(c.Request.Context(), payload, signature)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"received": true})
		case errors.Is(err, domain.ErrNotConfigured):
			logger.Printf("webhook: not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook not configured"})
		case errors.Is(err, domain.ErrInvalidSignature) && signature == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing signature"})
		case errors.Is(err, domain.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		default:
			logger.Printf("webhook: processing failed err=%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		}
	}
}
