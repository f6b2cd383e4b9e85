package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/xresponse"
)

// TransactionHandler handles transaction lookup requests
type TransactionHandler struct {
	queryUC domain.QueryUsecase
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(queryUC domain.QueryUsecase) *TransactionHandler {
	return &TransactionHandler{queryUC: queryUC}
}

// TransactionResponse is the snapshot returned for a transaction lookup
type TransactionResponse struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	CreatedAt          string          `json:"created_at"`
	ProcessedAt        *string         `json:"processed_at"`
}

// GetTransaction retrieves a transaction snapshot by its identifier
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		xresponse.BadRequest(c, "Transaction ID is required")
		return
	}

	tx, err := h.queryUC.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			xresponse.NotFound(c, "Transaction not found")
			return
		}
		logger.Error("Failed to get transaction",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		xresponse.InternalServerError(c, "Failed to retrieve transaction")
		return
	}

	c.JSON(http.StatusOK, buildTransactionResponse(tx))
}

func buildTransactionResponse(tx *domain.Transaction) TransactionResponse {
	response := TransactionResponse{
		TransactionID:      tx.TransactionID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             tx.Amount,
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		CreatedAt:          tx.CreatedAt.UTC().Format(time.RFC3339),
	}

	if tx.ProcessedAt != nil {
		processedAt := tx.ProcessedAt.UTC().Format(time.RFC3339)
		response.ProcessedAt = &processedAt
	}

	return response
}
