// Package tickets wires the tickets bounded context for route registration.
package tickets

import (
	apphttp "voicecommerce_backend/internal/http"
	"voicecommerce_backend/internal/tickets/handler"
)

// Module bundles the tickets bounded context.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the tickets module.
func NewModule(h *handler.Handler) *Module {
	return &Module{handler: h}
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "tickets" }

// RegisterRoutes mounts the tickets API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tickets := ctx.V1.Group("/tickets")
	tickets.POST("", m.handler.Create)
	tickets.GET("/:id", m.handler.Get)
	tickets.GET("/:id/options", m.handler.Options)
	tickets.POST("/:id/confirm", m.handler.Confirm)
	tickets.GET("/:id/delivery", m.handler.Delivery)
}
