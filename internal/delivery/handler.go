package delivery

import (
	"context"
	"io"
	"net/http"
	"time"

	"voicecommerce_backend/platform/httpkit"
	"voicecommerce_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const callbackTimeout = 2 * time.Minute

// Handler receives logistics provider status callbacks.
type Handler struct {
	orchestrator *Orchestrator
	log          *logger.Logger
}

// NewHandler creates the logistics webhook handler.
func NewHandler(orchestrator *Orchestrator, log *logger.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, log: log}
}

// HandleLogisticsCallback validates the callback shape, ACKs, and applies the
// status update in the background so the provider never waits on our retries.
func (h *Handler) HandleLogisticsCallback(c *gin.Context) {
	cb, err := ParseStatusCallback(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		if err := h.orchestrator.HandleCallback(ctx, cb); err != nil {
			h.log.Error("failed to process logistics callback",
				"client_order_id", cb.ClientOrderID, "state", cb.State, "error", err)
		}
	}()

	httpkit.OK(c, gin.H{"received": true})
}
