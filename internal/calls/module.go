package calls

import (
	apphttp "voicecommerce_backend/internal/http"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/httpkit"
	"voicecommerce_backend/platform/logger"
)

// Module bundles the calls bounded context for route registration.
type Module struct {
	dispatcher *Dispatcher
	handler    *Handler
	secret     string
}

// NewModule wires the calls module.
func NewModule(dispatcher *Dispatcher, cfg config.VoiceConfig, log *logger.Logger) *Module {
	return &Module{
		dispatcher: dispatcher,
		handler:    NewHandler(dispatcher, log),
		secret:     cfg.GetVoiceWebhookSecret(),
	}
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "calls" }

// Dispatcher exposes the dispatcher for the pipeline and the worker.
func (m *Module) Dispatcher() *Dispatcher { return m.dispatcher }

// RegisterRoutes mounts the voice webhook.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/voice", httpkit.WebhookSecret(m.secret), m.handler.HandleVoiceWebhook)
}
