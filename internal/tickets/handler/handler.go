// Package handler exposes the tickets HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"voicecommerce_backend/internal/delivery"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/platform/httpkit"
	"voicecommerce_backend/platform/logger"
	"voicecommerce_backend/platform/phone"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request payload"

// TicketService is the slice of the pipeline service the handler needs.
type TicketService interface {
	CreateTicket(ctx context.Context, requestedID, query, location, phoneNumber, name string) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
}

// OrderPlacer confirms an option into a delivery order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, ticketID, optionRef, customerName string) error
}

// OrderReader exposes the latest delivery attempt for a ticket.
type OrderReader interface {
	GetLatestByTicket(ctx context.Context, ticketID string) (*delivery.Order, error)
}

// Handler serves the tickets API.
type Handler struct {
	service TicketService
	orders  OrderPlacer
	reader  OrderReader
	log     *logger.Logger
}

// New creates the tickets handler.
func New(service TicketService, orders OrderPlacer, reader OrderReader, log *logger.Logger) *Handler {
	return &Handler{service: service, orders: orders, reader: reader, log: log}
}

type createTicketRequest struct {
	TicketID string `json:"ticketId" binding:"omitempty,max=32"`
	Query    string `json:"query" binding:"required,min=3,max=500"`
	Location string `json:"location" binding:"required,min=3,max=500"`
	Phone    string `json:"phone" binding:"required,phone"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

type ticketResponse struct {
	TicketID     string                 `json:"ticketId"`
	Status       domain.Status          `json:"status"`
	Query        string                 `json:"query"`
	Location     string                 `json:"location"`
	Category     string                 `json:"category,omitempty"`
	ErrorMessage *string                `json:"errorMessage,omitempty"`
	Result       *domain.CompiledResult `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:     t.ID,
		Status:       t.Status,
		Query:        t.Query,
		Location:     t.Location,
		Category:     t.Category,
		ErrorMessage: t.ErrorMessage,
		Result:       t.Result,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// Create admits a new ticket and kicks off the pipeline.
func (h *Handler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	ticket, err := h.service.CreateTicket(c.Request.Context(),
		req.TicketID, req.Query, req.Location, phone.NormalizeE164(req.Phone), req.Name)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, toTicketResponse(ticket))
}

// Get returns a ticket's current state, including its result when compiled.
func (h *Handler) Get(c *gin.Context) {
	ticket, err := h.service.GetTicket(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTicketResponse(ticket))
}

// Options returns the compiled purchase options for a completed ticket.
func (h *Handler) Options(c *gin.Context) {
	ticket, err := h.service.GetTicket(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	if ticket.Result == nil {
		httpkit.Error(c, http.StatusConflict, "ticket has no compiled result yet", gin.H{"status": ticket.Status})
		return
	}
	httpkit.OK(c, ticket.Result)
}

type confirmRequest struct {
	OptionRef    string `json:"optionRef" binding:"required"`
	CustomerName string `json:"customerName" binding:"omitempty,max=100"`
}

// Confirm books a delivery for the chosen option.
func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	ticketID := c.Param("id")
	if err := h.orders.PlaceOrder(c.Request.Context(), ticketID, req.OptionRef, req.CustomerName); httpkit.HandleError(c, err) {
		return
	}

	ticket, err := h.service.GetTicket(c.Request.Context(), ticketID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTicketResponse(ticket))
}

type deliveryResponse struct {
	ClientOrderID string   `json:"clientOrderId"`
	State         string   `json:"state"`
	CarrierName   *string  `json:"carrierName,omitempty"`
	QuotedPrice   *float64 `json:"quotedPrice,omitempty"`
	RiderName     *string  `json:"riderName,omitempty"`
	RiderPhone    *string  `json:"riderPhone,omitempty"`
	TrackingURL   *string  `json:"trackingUrl,omitempty"`
	ErrorMessage  *string  `json:"errorMessage,omitempty"`
}

// Delivery returns the latest delivery attempt for a ticket.
func (h *Handler) Delivery(c *gin.Context) {
	order, err := h.reader.GetLatestByTicket(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, deliveryResponse{
		ClientOrderID: order.ClientOrderID,
		State:         order.State,
		CarrierName:   order.CarrierName,
		QuotedPrice:   order.QuotedPrice,
		RiderName:     order.RiderName,
		RiderPhone:    order.RiderPhone,
		TrackingURL:   order.TrackingURL,
		ErrorMessage:  order.ErrorMessage,
	})
}
