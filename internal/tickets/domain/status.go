// Package domain provides core business rules for the tickets bounded context.
package domain

// Status is the ticket lifecycle status.
type Status string

// Order-branch statuses.
const (
	StatusReceived       Status = "received"
	StatusClassifying    Status = "classifying"
	StatusAnalyzing      Status = "analyzing"
	StatusResearching    Status = "researching"
	StatusFindingVendors Status = "finding_vendors"
	StatusCallingVendors Status = "calling_vendors"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusNoVendors      Status = "no_vendors"
	StatusCallFailed     Status = "call_failed"
)

// Delivery-branch statuses.
const (
	StatusPlacingOrder     Status = "placing_order"
	StatusOrderPlaced      Status = "order_placed"
	StatusAgentAssigned    Status = "agent_assigned"
	StatusOutForDelivery   Status = "out_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusDeliveryFailed   Status = "delivery_failed"
	StatusRetryingDelivery Status = "retrying_delivery"
)

// terminalStatuses are statuses from which no automatic transition occurs.
var terminalStatuses = map[Status]bool{
	StatusFailed:         true,
	StatusNoVendors:      true,
	StatusCallFailed:     true,
	StatusDelivered:      true,
	StatusDeliveryFailed: true,
}

// activeStatuses are statuses that block admission of a new ticket with the
// same identifier. completed is included: a completed ticket is waiting for
// the user's confirmation and may still enter the delivery branch.
var activeStatuses = map[Status]bool{
	StatusReceived:         true,
	StatusClassifying:      true,
	StatusAnalyzing:        true,
	StatusResearching:      true,
	StatusFindingVendors:   true,
	StatusCallingVendors:   true,
	StatusCompleted:        true,
	StatusPlacingOrder:     true,
	StatusOrderPlaced:      true,
	StatusAgentAssigned:    true,
	StatusOutForDelivery:   true,
	StatusRetryingDelivery: true,
}

// transitions is the legal transition table. Any status may additionally
// transition to failed when a pipeline step errors.
var transitions = map[Status][]Status{
	StatusReceived:       {StatusClassifying},
	StatusClassifying:    {StatusAnalyzing, StatusCompleted},
	StatusAnalyzing:      {StatusResearching},
	StatusResearching:    {StatusFindingVendors},
	StatusFindingVendors: {StatusCallingVendors, StatusNoVendors},
	StatusCallingVendors: {StatusCompleted, StatusCallFailed},
	StatusCompleted:      {StatusPlacingOrder},

	StatusPlacingOrder:     {StatusOrderPlaced, StatusDeliveryFailed},
	StatusOrderPlaced:      {StatusAgentAssigned, StatusOutForDelivery, StatusDelivered, StatusDeliveryFailed, StatusRetryingDelivery},
	StatusAgentAssigned:    {StatusOutForDelivery, StatusDelivered, StatusDeliveryFailed, StatusRetryingDelivery, StatusOrderPlaced},
	StatusOutForDelivery:   {StatusDelivered, StatusDeliveryFailed, StatusRetryingDelivery},
	StatusRetryingDelivery: {StatusOrderPlaced, StatusDeliveryFailed},
	StatusDeliveryFailed:   {StatusRetryingDelivery},
}

// Terminal reports whether the status permits no further automatic transition.
func (s Status) Terminal() bool {
	return terminalStatuses[s]
}

// TerminalStatuses lists every terminal status. The order is stable so the
// list can be embedded in SQL parameters.
func TerminalStatuses() []Status {
	return []Status{
		StatusFailed, StatusNoVendors, StatusCallFailed,
		StatusDelivered, StatusDeliveryFailed,
	}
}

// Active reports whether a ticket in this status blocks creation of another
// ticket with the same identifier.
func (s Status) Active() bool {
	return activeStatuses[s]
}

// CanTransition reports whether moving from s to next is legal. Moving to
// failed is always legal from a non-terminal status.
func (s Status) CanTransition(next Status) bool {
	if next == StatusFailed {
		return !s.Terminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
