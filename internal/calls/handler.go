package calls

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"voicecommerce_backend/platform/httpkit"
	"voicecommerce_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// webhookTaskTimeout bounds the background processing spawned per callback.
const webhookTaskTimeout = 2 * time.Minute

// Handler receives voice-provider callbacks.
type Handler struct {
	dispatcher *Dispatcher
	log        *logger.Logger
}

// NewHandler creates the voice webhook handler.
func NewHandler(dispatcher *Dispatcher, log *logger.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, log: log}
}

// HandleVoiceWebhook parses the callback and processes it asynchronously.
// The provider only needs an acknowledgement; end-of-call work (analysis,
// retries, compilation) runs in its own task.
func (h *Handler) HandleVoiceWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read webhook body", nil)
		return
	}

	event, err := ParseWebhook(body)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			// Acknowledge so the provider stops redelivering event types we
			// do not consume.
			c.Status(http.StatusOK)
			return
		}
		h.log.Warn("rejected malformed voice webhook", "error", err)
		httpkit.Error(c, http.StatusBadRequest, "malformed webhook payload", nil)
		return
	}

	switch typed := event.(type) {
	case EndOfCallReport:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), webhookTaskTimeout)
			defer cancel()
			if err := h.dispatcher.HandleEndOfCall(ctx, typed); err != nil {
				h.log.Error("end-of-call processing failed", "external_call_id", typed.ExternalCallID, "error", err)
			}
		}()
	case CallStatusUpdate:
		h.log.Debug("call status update", "external_call_id", typed.ExternalCallID, "status", typed.Status)
	}

	c.Status(http.StatusOK)
}
