package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the service routes
func SetupRoutes(
	router *gin.Engine,
	webhookHandler *WebhookHandler,
	transactionHandler *TransactionHandler,
) {
	router.GET("/", healthHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/webhooks/transactions", webhookHandler.ReceiveTransaction)
		v1.GET("/transactions/:transaction_id", transactionHandler.GetTransaction)
	}
}

// healthHandler reports service health and the current UTC time
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "HEALTHY",
		"current_time": time.Now().UTC().Format(time.RFC3339),
	})
}
