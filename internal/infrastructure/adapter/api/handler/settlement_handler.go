package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/usecase/settlement"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/dto"
)

// SettlementHandler handles intent submission and transaction queries
type SettlementHandler struct {
	settlements usecase.SettlementUseCase
	logger      coreport.Logger
}

// NewSettlementHandler creates a new settlement handler instance
func NewSettlementHandler(settlements usecase.SettlementUseCase, logger coreport.Logger) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, logger: logger}
}

// SubmitIntent handles POST /users/:userId/intents.
// Acceptance only means the intent is queued; the outcome is visible through the transaction endpoints.
func (h *SettlementHandler) SubmitIntent(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	result, err := h.settlements.SubmitIntent(c.Request.Context(), usecase.SubmitIntentRequest{
		Kind:               req.Kind,
		SubjectUserID:      userID,
		Amount:             req.Amount,
		Domain:             req.Domain,
		CounterpartyUserID: req.CounterpartyUserID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.IntentResponse{
		IntentID: result.IntentID,
		Status:   string(result.Status),
	})
}

// ListUserTransactions handles GET /users/:userId/transactions
func (h *SettlementHandler) ListUserTransactions(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, settlement.DefaultUserTransactionsLimit)
	if !ok {
		return
	}

	items, err := h.settlements.ListUserTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserTransactionResponses(items))
}

// GetTransaction handles GET /transactions/:id
func (h *SettlementHandler) GetTransaction(c *gin.Context) {
	record, err := h.settlements.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTransactionResponse(record))
}

// ListTransactions handles GET /transactions
func (h *SettlementHandler) ListTransactions(c *gin.Context) {
	limit, ok := parseLimit(c, settlement.DefaultTransactionsLimit)
	if !ok {
		return
	}

	records, err := h.settlements.ListTransactions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTransactionResponses(records))
}

// QueueStatus handles GET /queue/status
func (h *SettlementHandler) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewQueueStatusResponse(h.settlements.QueueStatus()))
}
