package delivery

import (
	"context"
	"fmt"
	"strconv"

	"voicecommerce_backend/internal/calls"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"
	"voicecommerce_backend/platform/phone"

	"github.com/google/uuid"
)

// OrderStore is the slice of the delivery-orders repository the orchestrator
// needs.
type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	GetByClientOrderID(ctx context.Context, clientOrderID string) (*Order, error)
	GetByExternalOrderID(ctx context.Context, externalOrderID string) (*Order, error)
	MarkPlaced(ctx context.Context, o *Order) error
	SetError(ctx context.Context, o *Order, message string) error
	UpdateTracking(ctx context.Context, o *Order) error
	AppendFailedCarrier(ctx context.Context, o *Order, carrierID string) error
	FailedCarrierIDs(ctx context.Context, ticketID string) ([]string, error)
}

// TicketStore is the slice of the tickets repository the orchestrator needs.
type TicketStore interface {
	GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	GetProduct(ctx context.Context, ticketID string) (*domain.ResearchedProduct, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error
	Fail(ctx context.Context, ticketID string, status domain.Status, message string) error
}

// CallReader resolves a chosen option to its vendor call.
type CallReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*calls.VendorCall, error)
}

// VendorReader loads the pickup vendor's details.
type VendorReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*vendors.Vendor, error)
}

// Geocoder is the slice of the maps service the orchestrator needs.
type Geocoder interface {
	Forward(ctx context.Context, address string) (*maps.GeoPoint, error)
	Reverse(ctx context.Context, lat, lng float64) (*maps.GeoPoint, error)
}

// QuoteOrderer is the logistics provider contract.
type QuoteOrderer interface {
	GetQuotes(ctx context.Context, req QuoteRequest) ([]Quote, string, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*PlacedOrder, error)
}

// Orchestrator turns a confirmed vendor choice into a booked delivery and
// re-books with a different carrier when the chosen one cancels.
type Orchestrator struct {
	repo       OrderStore
	tickets    TicketStore
	callReader CallReader
	vendors    VendorReader
	geocoder   Geocoder
	logistics  QuoteOrderer
	bus        events.Bus
	maxRetries int
	log        *logger.Logger
}

// NewOrchestrator wires the delivery orchestrator.
func NewOrchestrator(repo OrderStore, tickets TicketStore, callReader CallReader, vendorReader VendorReader, geocoder Geocoder, logistics QuoteOrderer, bus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		tickets:    tickets,
		callReader: callReader,
		vendors:    vendorReader,
		geocoder:   geocoder,
		logistics:  logistics,
		bus:        bus,
		maxRetries: cfg.GetMaxDeliveryRetries(),
		log:        log,
	}
}

// ResolveOption maps a user's choice reference — a vendor-call id or a
// 1-based index into the ranked option list — onto the compiled option.
func ResolveOption(result *domain.CompiledResult, optionRef string) (*domain.Option, error) {
	if result == nil || result.Status != domain.ResultFound || len(result.Options) == 0 {
		return nil, apperr.NotFound("no purchasable options on this ticket")
	}

	if index, err := strconv.Atoi(optionRef); err == nil {
		if index < 1 || index > len(result.Options) {
			return nil, apperr.NotFound(fmt.Sprintf("option %d is out of range (1-%d)", index, len(result.Options)))
		}
		return &result.Options[index-1], nil
	}

	for i := range result.Options {
		if result.Options[i].VendorCallID == optionRef {
			return &result.Options[i], nil
		}
	}
	return nil, apperr.NotFound("unknown option reference")
}

// PlaceOrder books a delivery for the confirmed option. Reference and state
// validation failures leave the ticket untouched; failures after the ticket
// enters placing_order end in delivery_failed.
func (o *Orchestrator) PlaceOrder(ctx context.Context, ticketID, optionRef, customerName string) error {
	ticket, err := o.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.StatusCompleted {
		return apperr.Conflict(fmt.Sprintf("ticket %s is not awaiting confirmation (status %s)", ticketID, ticket.Status))
	}

	option, err := ResolveOption(ticket.Result, optionRef)
	if err != nil {
		return err
	}

	callID, err := uuid.Parse(option.VendorCallID)
	if err != nil {
		return apperr.NotFound("unknown option reference")
	}
	call, err := o.callReader.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	vendor, err := o.vendors.GetByID(ctx, call.VendorID)
	if err != nil {
		return err
	}

	if err := o.tickets.UpdateStatus(ctx, ticketID, domain.StatusPlacingOrder); err != nil {
		return err
	}
	log := o.log.WithTicketID(ticketID)

	drop, err := o.geocoder.Forward(ctx, ticket.Location)
	if err != nil {
		return o.failDelivery(ctx, ticketID, fmt.Sprintf("could not locate the delivery address: %v", err))
	}

	pickupPincode, err := o.resolvePickupPincode(ctx, vendor)
	if err != nil {
		return o.failDelivery(ctx, ticketID, fmt.Sprintf("could not determine the shop's postal code: %v", err))
	}

	amount := option.Price
	if amount == nil {
		product, err := o.tickets.GetProduct(ctx, ticketID)
		if err == nil {
			amount = &product.AvgOnlinePrice
		}
	}
	itemValue := float64(0)
	if amount != nil {
		itemValue = CapOrderValue(*amount)
	}

	order := &Order{
		ID:            uuid.New(),
		TicketID:      ticketID,
		VendorCallID:  callID,
		ClientOrderID: NewClientOrderID(ticketID),
		PickupName:    vendor.Name,
		PickupPhone:   phone.NationalDigits(vendor.Phone),
		PickupAddress: vendor.Address,
		PickupPincode: pickupPincode,
		PickupLat:     vendor.Lat,
		PickupLng:     vendor.Lng,
		CustomerName:  customerName,
		DropPhone:     phone.NationalDigits(ticket.ContactPhone),
		DropAddress:   ticket.Location,
		DropPincode:   drop.PostalCode,
		DropLat:       drop.Lat,
		DropLng:       drop.Lng,
		ItemValue:     itemValue,
		State:         "created",
	}

	quotes, providerMsg, err := o.logistics.GetQuotes(ctx, o.quoteRequest(order))
	if err != nil {
		return o.failDelivery(ctx, ticketID, fmt.Sprintf("delivery quote request failed: %v", err))
	}
	if len(quotes) == 0 {
		// The provider's own explanation is surfaced verbatim.
		return o.failDelivery(ctx, ticketID, fmt.Sprintf("no delivery quotes available: %s", providerMsg))
	}
	cheapest, _ := CheapestQuote(quotes)

	if err := o.repo.Create(ctx, order); err != nil {
		return err
	}
	log.Info("placing delivery order", "carrier", cheapest.CarrierName, "price", cheapest.PriceForward)

	return o.bookWithCarrier(ctx, order, cheapest)
}

// HandleCallback applies a provider status callback: tracking fields, the
// fixed state mapping onto the ticket, and the carrier-cancellation retry.
func (o *Orchestrator) HandleCallback(ctx context.Context, cb StatusCallback) error {
	order, err := o.lookupOrder(ctx, cb)
	if err != nil {
		return err
	}
	log := o.log.WithTicketID(order.TicketID)

	order.State = cb.State
	if cb.RiderName != "" {
		order.RiderName = &cb.RiderName
	}
	if cb.RiderPhone != "" {
		order.RiderPhone = &cb.RiderPhone
	}
	if cb.TrackingURL != "" {
		order.TrackingURL = &cb.TrackingURL
	}
	if err := o.repo.UpdateTracking(ctx, order); err != nil {
		return err
	}

	if CarrierCancelled(cb.CancelledBy, order.CarrierID) {
		log.Info("carrier cancelled the order, retrying delivery", "carrier_id", *order.CarrierID)
		if err := o.repo.AppendFailedCarrier(ctx, order, *order.CarrierID); err != nil {
			return err
		}
		return o.RetryDelivery(ctx, order)
	}

	if status, ok := MapProviderState(cb.State); ok {
		if err := o.tickets.UpdateStatus(ctx, order.TicketID, status); err != nil {
			return err
		}
	} else {
		log.Warn("unknown provider order state", "state", cb.State)
	}
	return nil
}

// RetryDelivery re-books the same pickup/drop pair with a carrier that has
// not failed before, bounded by the retry cap.
func (o *Orchestrator) RetryDelivery(ctx context.Context, prior *Order) error {
	ticketID := prior.TicketID
	log := o.log.WithTicketID(ticketID)

	failed, err := o.repo.FailedCarrierIDs(ctx, ticketID)
	if err != nil {
		return err
	}
	if len(failed) >= o.maxRetries {
		return o.failDelivery(ctx, ticketID,
			fmt.Sprintf("delivery failed: %d carrier attempts exhausted", len(failed)))
	}

	if err := o.tickets.UpdateStatus(ctx, ticketID, domain.StatusRetryingDelivery); err != nil {
		return err
	}

	attempt := &Order{
		ID:               uuid.New(),
		TicketID:         ticketID,
		VendorCallID:     prior.VendorCallID,
		ClientOrderID:    NewClientOrderID(ticketID),
		PickupName:       prior.PickupName,
		PickupPhone:      prior.PickupPhone,
		PickupAddress:    prior.PickupAddress,
		PickupPincode:    prior.PickupPincode,
		PickupLat:        prior.PickupLat,
		PickupLng:        prior.PickupLng,
		CustomerName:     prior.CustomerName,
		DropPhone:        prior.DropPhone,
		DropAddress:      prior.DropAddress,
		DropPincode:      prior.DropPincode,
		DropLat:          prior.DropLat,
		DropLng:          prior.DropLng,
		ItemValue:        prior.ItemValue,
		State:            "created",
		FailedCarrierIDs: failed,
	}

	quotes, providerMsg, err := o.logistics.GetQuotes(ctx, o.quoteRequest(attempt))
	if err != nil {
		return o.failDelivery(ctx, ticketID, fmt.Sprintf("delivery quote request failed on retry: %v", err))
	}
	remaining := ExcludeCarriers(quotes, failed)
	if len(remaining) == 0 {
		return o.failDelivery(ctx, ticketID,
			fmt.Sprintf("no alternative carriers available: %s", providerMsg))
	}
	cheapest, _ := CheapestQuote(remaining)

	if err := o.repo.Create(ctx, attempt); err != nil {
		return err
	}
	log.Info("retrying delivery", "carrier", cheapest.CarrierName, "excluded", failed)

	return o.bookWithCarrier(ctx, attempt, cheapest)
}

// bookWithCarrier places the order and settles the attempt row and ticket
// status either way.
func (o *Orchestrator) bookWithCarrier(ctx context.Context, order *Order, quote Quote) error {
	placed, err := o.logistics.CreateOrder(ctx, OrderRequest{
		ClientOrderID: order.ClientOrderID,
		CarrierID:     quote.CarrierID,
		PickupName:    order.PickupName,
		PickupPhone:   order.PickupPhone,
		PickupAddress: order.PickupAddress,
		PickupPincode: order.PickupPincode,
		PickupLat:     order.PickupLat,
		PickupLng:     order.PickupLng,
		DropName:      order.CustomerName,
		DropPhone:     order.DropPhone,
		DropAddress:   order.DropAddress,
		DropPincode:   order.DropPincode,
		DropLat:       order.DropLat,
		DropLng:       order.DropLng,
		Amount:        order.ItemValue,
	})
	if err != nil {
		message := fmt.Sprintf("order placement with %s failed: %v", quote.CarrierName, err)
		if repoErr := o.repo.SetError(ctx, order, message); repoErr != nil {
			o.log.WithTicketID(order.TicketID).Error("failed to record placement error", "error", repoErr)
		}
		// The attempted carrier joins the failed set so the next retry
		// skips it.
		if repoErr := o.repo.AppendFailedCarrier(ctx, order, quote.CarrierID); repoErr != nil {
			o.log.WithTicketID(order.TicketID).Error("failed to record failed carrier", "error", repoErr)
		}
		return o.failDelivery(ctx, order.TicketID, message)
	}

	externalID := placed.OrderID
	order.ExternalOrderID = &externalID
	order.CarrierID = &quote.CarrierID
	order.CarrierName = &quote.CarrierName
	order.QuotedPrice = &quote.PriceForward
	order.State = placed.State
	if err := o.repo.MarkPlaced(ctx, order); err != nil {
		return err
	}

	if err := o.tickets.UpdateStatus(ctx, order.TicketID, domain.StatusOrderPlaced); err != nil {
		return err
	}

	o.bus.Publish(ctx, events.OrderPlaced{
		BaseEvent:   events.NewBaseEvent(),
		TicketID:    order.TicketID,
		CarrierName: quote.CarrierName,
	})
	return nil
}

func (o *Orchestrator) quoteRequest(order *Order) QuoteRequest {
	return QuoteRequest{
		PickupPincode: order.PickupPincode,
		PickupLat:     order.PickupLat,
		PickupLng:     order.PickupLng,
		DropPincode:   order.DropPincode,
		DropLat:       order.DropLat,
		DropLng:       order.DropLng,
		Amount:        order.ItemValue,
		WeightGrams:   1000,
	}
}

func (o *Orchestrator) resolvePickupPincode(ctx context.Context, vendor *vendors.Vendor) (string, error) {
	if pincode := maps.ExtractPincode(vendor.Address); pincode != "" {
		return pincode, nil
	}
	point, err := o.geocoder.Reverse(ctx, vendor.Lat, vendor.Lng)
	if err != nil {
		return "", err
	}
	if point.PostalCode == "" {
		return "", fmt.Errorf("reverse geocoding produced no postal code")
	}
	return point.PostalCode, nil
}

func (o *Orchestrator) failDelivery(ctx context.Context, ticketID, message string) error {
	if err := o.tickets.Fail(ctx, ticketID, domain.StatusDeliveryFailed, message); err != nil {
		return err
	}
	o.log.WithTicketID(ticketID).Warn("delivery failed", "reason", message)
	return nil
}

func (o *Orchestrator) lookupOrder(ctx context.Context, cb StatusCallback) (*Order, error) {
	if cb.ClientOrderID != "" {
		return o.repo.GetByClientOrderID(ctx, cb.ClientOrderID)
	}
	return o.repo.GetByExternalOrderID(ctx, cb.OrderID)
}
