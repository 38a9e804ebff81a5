// Package events defines the domain events exchanged between modules.
package events

import (
	"voicecommerce_backend/platform/events"
)

// Re-exported platform types so modules only import this package.
type (
	Bus         = events.Bus
	Event       = events.Event
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the default in-process bus.
func NewInMemoryBus() *events.InMemoryBus {
	return events.NewInMemoryBus()
}

const (
	EventTicketReceived  = "ticket.received"
	EventTicketFailed    = "ticket.failed"
	EventTicketCompleted = "ticket.completed"
	EventOrderPlaced     = "delivery.order_placed"
)

// TicketReceived fires when a new ticket is admitted.
type TicketReceived struct {
	BaseEvent
	TicketID string
	Query    string
	Category string
}

func (TicketReceived) EventName() string { return EventTicketReceived }

// TicketFailed fires when the pipeline ends a ticket in a failure status.
type TicketFailed struct {
	BaseEvent
	TicketID string
	Status   string
	Reason   string
}

func (TicketFailed) EventName() string { return EventTicketFailed }

// TicketCompleted fires when a compiled result is ready for the user.
type TicketCompleted struct {
	BaseEvent
	TicketID     string
	OptionsCount int
}

func (TicketCompleted) EventName() string { return EventTicketCompleted }

// OrderPlaced fires when a delivery order is successfully booked.
type OrderPlaced struct {
	BaseEvent
	TicketID    string
	CarrierName string
}

func (OrderPlaced) EventName() string { return EventOrderPlaced }
