// Package delivery implements the delivery orchestrator: carrier quoting,
// order placement, provider status callbacks, and retry-on-cancellation.
package delivery

import (
	"strings"
	"time"

	"voicecommerce_backend/internal/tickets/domain"

	"github.com/google/uuid"
)

// Order is one delivery booking attempt. Every attempt (original + retries)
// gets its own row so the failed-carrier history survives retries.
type Order struct {
	ID              uuid.UUID
	TicketID        string
	VendorCallID    uuid.UUID
	ClientOrderID   string
	ExternalOrderID *string

	PickupName    string
	PickupPhone   string
	PickupAddress string
	PickupPincode string
	PickupLat     float64
	PickupLng     float64

	CustomerName string
	DropPhone    string
	DropAddress  string
	DropPincode  string
	DropLat      float64
	DropLng      float64

	ItemValue   float64
	CarrierID   *string
	CarrierName *string
	QuotedPrice *float64

	State            string
	RiderName        *string
	RiderPhone       *string
	TrackingURL      *string
	FailedCarrierIDs []string
	ErrorMessage     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Quote is one carrier's offer for a pickup/drop pair.
type Quote struct {
	CarrierID    string  `json:"lsp_id"`
	CarrierName  string  `json:"lsp_name"`
	PriceForward float64 `json:"price_forward"`
	PickupETA    string  `json:"pickup_eta"`
}

// Order value cap: parcels above this declared value are rejected by the
// provider for uninsured shipments, so the declared value is clamped.
const (
	maxDeclaredValue    = 1000
	cappedDeclaredValue = 999
)

// CapOrderValue clamps the declared item value to the provider's limit.
func CapOrderValue(amount float64) float64 {
	if amount > maxDeclaredValue {
		return cappedDeclaredValue
	}
	return amount
}

// CheapestQuote picks the quote with the lowest forward price. Ties keep the
// provider's order. Returns false when the list is empty.
func CheapestQuote(quotes []Quote) (Quote, bool) {
	if len(quotes) == 0 {
		return Quote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.PriceForward < best.PriceForward {
			best = q
		}
	}
	return best, true
}

// ExcludeCarriers filters out quotes from carriers that already failed for
// this ticket.
func ExcludeCarriers(quotes []Quote, failed []string) []Quote {
	failedSet := make(map[string]bool, len(failed))
	for _, id := range failed {
		failedSet[id] = true
	}
	var remaining []Quote
	for _, q := range quotes {
		if !failedSet[q.CarrierID] {
			remaining = append(remaining, q)
		}
	}
	return remaining
}

// providerStateToStatus is the fixed lookup from the logistics provider's
// state vocabulary onto ticket delivery-branch statuses.
var providerStateToStatus = map[string]domain.Status{
	"UnFulfilled":         domain.StatusOrderPlaced,
	"Pending":             domain.StatusOrderPlaced,
	"Searching-for-Agent": domain.StatusOrderPlaced,
	"Agent-assigned":      domain.StatusAgentAssigned,
	"At-pickup":           domain.StatusAgentAssigned,
	"Order-picked-up":     domain.StatusOutForDelivery,
	"At-delivery":         domain.StatusOutForDelivery,
	"Order-delivered":     domain.StatusDelivered,
	"Cancelled":           domain.StatusDeliveryFailed,
}

// MapProviderState translates a provider order state to a ticket status.
// RTO (return-to-origin) states all mean the delivery failed. Unknown states
// return ok=false and leave the ticket untouched.
func MapProviderState(state string) (domain.Status, bool) {
	if strings.HasPrefix(state, "RTO-") {
		return domain.StatusDeliveryFailed, true
	}
	status, ok := providerStateToStatus[state]
	return status, ok
}

// CarrierCancelled is the carrier-cancellation predicate: true iff the
// cancelling party is the assigned carrier itself, not the buyer or merchant.
func CarrierCancelled(cancelledBy string, carrierID *string) bool {
	return carrierID != nil && cancelledBy != "" && cancelledBy == *carrierID
}

// NewClientOrderID builds the unique client-side order id for an attempt.
func NewClientOrderID(ticketID string) string {
	return ticketID + "_" + uuid.NewString()[:8]
}
