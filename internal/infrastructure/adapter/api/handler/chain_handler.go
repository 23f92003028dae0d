package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/dto"
)

// EventPublisher accepts relayed chain events for the reconciler
type EventPublisher interface {
	Publish(ctx context.Context, event entity.ChainEvent) error
}

// ChainHandler receives chain events from relayers
type ChainHandler struct {
	publisher EventPublisher
	logger    coreport.Logger
}

func NewChainHandler(publisher EventPublisher, logger coreport.Logger) *ChainHandler {
	return &ChainHandler{publisher: publisher, logger: logger}
}

// PublishEvent handles POST /chain/events. Malformed events are refused here;
// well-formed ones are reconciled asynchronously.
func (h *ChainHandler) PublishEvent(c *gin.Context) {
	var event entity.ChainEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		badRequest(c, "Invalid chain event: "+err.Error())
		return
	}

	normalized, err := event.Normalized()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), normalized); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Debug("Chain event relayed", map[string]any{
		"external_ref": normalized.ExternalRef,
		"kind":         string(normalized.Kind),
	})
	c.JSON(http.StatusAccepted, dto.ChainEventAccepted{
		ExternalRef: normalized.ExternalRef,
		Status:      "accepted",
	})
}
