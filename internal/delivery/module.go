package delivery

import (
	apphttp "voicecommerce_backend/internal/http"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/httpkit"
	"voicecommerce_backend/platform/logger"
)

// Module bundles the delivery bounded context for route registration.
type Module struct {
	orchestrator *Orchestrator
	handler      *Handler
	secret       string
}

// NewModule wires the delivery module.
func NewModule(orchestrator *Orchestrator, cfg config.LogisticsConfig, log *logger.Logger) *Module {
	return &Module{
		orchestrator: orchestrator,
		handler:      NewHandler(orchestrator, log),
		secret:       cfg.GetLogisticsWebhookSecret(),
	}
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "delivery" }

// Orchestrator exposes the orchestrator to the tickets module.
func (m *Module) Orchestrator() *Orchestrator { return m.orchestrator }

// RegisterRoutes mounts the logistics status callback.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/logistics", httpkit.WebhookSecret(m.secret), m.handler.HandleLogisticsCallback)
}
