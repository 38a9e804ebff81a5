package delivery

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"voicecommerce_backend/internal/calls"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
)

func floatPtr(v float64) *float64 { return &v }

func TestCheapestQuote(t *testing.T) {
	quotes := []Quote{
		{CarrierID: "lsp-a", CarrierName: "Fast Fleet", PriceForward: 80},
		{CarrierID: "lsp-b", CarrierName: "Budget Riders", PriceForward: 65},
		{CarrierID: "lsp-c", CarrierName: "Metro Go", PriceForward: 92},
	}

	best, ok := CheapestQuote(quotes)
	if !ok {
		t.Fatal("expected a quote")
	}
	if best.CarrierID != "lsp-b" {
		t.Errorf("cheapest = %s, want lsp-b", best.CarrierID)
	}
	if best.PriceForward != 65 {
		t.Errorf("price = %v, want 65", best.PriceForward)
	}

	if _, ok := CheapestQuote(nil); ok {
		t.Error("empty quote list should report ok=false")
	}
}

func TestCheapestQuoteTieKeepsProviderOrder(t *testing.T) {
	quotes := []Quote{
		{CarrierID: "first", PriceForward: 50},
		{CarrierID: "second", PriceForward: 50},
	}
	best, _ := CheapestQuote(quotes)
	if best.CarrierID != "first" {
		t.Errorf("tie should keep provider order, got %s", best.CarrierID)
	}
}

func TestExcludeCarriers(t *testing.T) {
	quotes := []Quote{
		{CarrierID: "lsp-a", PriceForward: 60},
		{CarrierID: "lsp-b", PriceForward: 70},
		{CarrierID: "lsp-c", PriceForward: 80},
	}

	remaining := ExcludeCarriers(quotes, []string{"lsp-a"})
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	for _, q := range remaining {
		if q.CarrierID == "lsp-a" {
			t.Error("failed carrier should be excluded")
		}
	}

	// The excluded carrier being the cheapest means the retry pays more.
	best, _ := CheapestQuote(remaining)
	if best.CarrierID != "lsp-b" {
		t.Errorf("retry carrier = %s, want lsp-b", best.CarrierID)
	}

	if got := ExcludeCarriers(quotes, []string{"lsp-a", "lsp-b", "lsp-c"}); len(got) != 0 {
		t.Errorf("all carriers failed should leave nothing, got %d", len(got))
	}
}

func TestMapProviderState(t *testing.T) {
	tests := []struct {
		state  string
		want   domain.Status
		wantOK bool
	}{
		{"UnFulfilled", domain.StatusOrderPlaced, true},
		{"Pending", domain.StatusOrderPlaced, true},
		{"Searching-for-Agent", domain.StatusOrderPlaced, true},
		{"Agent-assigned", domain.StatusAgentAssigned, true},
		{"At-pickup", domain.StatusAgentAssigned, true},
		{"Order-picked-up", domain.StatusOutForDelivery, true},
		{"At-delivery", domain.StatusOutForDelivery, true},
		{"Order-delivered", domain.StatusDelivered, true},
		{"Cancelled", domain.StatusDeliveryFailed, true},
		{"RTO-Initiated", domain.StatusDeliveryFailed, true},
		{"RTO-Delivered", domain.StatusDeliveryFailed, true},
		{"Teleported", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, ok := MapProviderState(tt.state)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCarrierCancelled(t *testing.T) {
	carrier := "lsp-a"
	tests := []struct {
		name        string
		cancelledBy string
		carrierID   *string
		want        bool
	}{
		{"carrier cancels own order", "lsp-a", &carrier, true},
		{"buyer cancels", "buyer", &carrier, false},
		{"no cancellation info", "", &carrier, false},
		{"order never assigned a carrier", "lsp-a", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CarrierCancelled(tt.cancelledBy, tt.carrierID); got != tt.want {
				t.Errorf("CarrierCancelled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCapOrderValue(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{500, 500},
		{1000, 1000},
		{1001, 999},
		{45000, 999},
	}
	for _, tt := range tests {
		if got := CapOrderValue(tt.amount); got != tt.want {
			t.Errorf("CapOrderValue(%v) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestNewClientOrderID(t *testing.T) {
	id := NewClientOrderID("TKT-042")
	if !strings.HasPrefix(id, "TKT-042_") {
		t.Fatalf("id %q should start with the ticket id", id)
	}
	suffix := strings.TrimPrefix(id, "TKT-042_")
	if len(suffix) != 8 {
		t.Errorf("suffix length = %d, want 8", len(suffix))
	}
	if NewClientOrderID("TKT-042") == id {
		t.Error("consecutive ids should differ")
	}
}

func TestResolveOption(t *testing.T) {
	result := &domain.CompiledResult{
		Status: domain.ResultFound,
		Options: []domain.Option{
			{VendorCallID: "7b0c6c5e-0000-0000-0000-000000000001", VendorName: "Shop A", Price: floatPtr(450)},
			{VendorCallID: "7b0c6c5e-0000-0000-0000-000000000002", VendorName: "Shop B", Price: floatPtr(480)},
		},
	}

	t.Run("by index", func(t *testing.T) {
		opt, err := ResolveOption(result, "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opt.VendorName != "Shop B" {
			t.Errorf("vendor = %s, want Shop B", opt.VendorName)
		}
	})

	t.Run("by vendor call id", func(t *testing.T) {
		opt, err := ResolveOption(result, "7b0c6c5e-0000-0000-0000-000000000001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opt.VendorName != "Shop A" {
			t.Errorf("vendor = %s, want Shop A", opt.VendorName)
		}
	})

	t.Run("out of range index", func(t *testing.T) {
		if _, err := ResolveOption(result, "3"); err == nil {
			t.Error("expected error for out-of-range index")
		}
		if _, err := ResolveOption(result, "0"); err == nil {
			t.Error("expected error for zero index")
		}
	})

	t.Run("unknown reference", func(t *testing.T) {
		if _, err := ResolveOption(result, "not-an-option"); err == nil {
			t.Error("expected error for unknown reference")
		}
	})

	t.Run("no options", func(t *testing.T) {
		empty := &domain.CompiledResult{Status: domain.ResultNoAvailability}
		if _, err := ResolveOption(empty, "1"); err == nil {
			t.Error("expected error when the result has no options")
		}
		if _, err := ResolveOption(nil, "1"); err == nil {
			t.Error("expected error for nil result")
		}
	})
}

func TestParseStatusCallback(t *testing.T) {
	t.Run("full callback", func(t *testing.T) {
		body := `{
			"client_order_id": "TKT-001_ab12cd34",
			"order_id": "prov-900",
			"state": "Agent-assigned",
			"rider": {"name": "Ravi", "phone": "+919876500000"},
			"tracking_url": "https://track.example/prov-900"
		}`
		cb, err := ParseStatusCallback(strings.NewReader(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cb.ClientOrderID != "TKT-001_ab12cd34" || cb.State != "Agent-assigned" {
			t.Errorf("unexpected callback: %+v", cb)
		}
		if cb.RiderName != "Ravi" || cb.TrackingURL == "" {
			t.Errorf("rider/tracking not parsed: %+v", cb)
		}
	})

	t.Run("cancellation", func(t *testing.T) {
		body := `{"order_id": "prov-901", "state": "Cancelled", "cancellation": {"cancelled_by": "lsp-a"}}`
		cb, err := ParseStatusCallback(strings.NewReader(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cb.CancelledBy != "lsp-a" {
			t.Errorf("cancelled_by = %q, want lsp-a", cb.CancelledBy)
		}
	})

	t.Run("missing state", func(t *testing.T) {
		if _, err := ParseStatusCallback(strings.NewReader(`{"order_id": "prov-902"}`)); err == nil {
			t.Error("expected error for missing state")
		}
	})

	t.Run("missing identifiers", func(t *testing.T) {
		if _, err := ParseStatusCallback(strings.NewReader(`{"state": "Pending"}`)); err == nil {
			t.Error("expected error when no order identifier is present")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		if _, err := ParseStatusCallback(strings.NewReader(`{`)); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

type fakeOrderStore struct {
	created     []*Order
	byClient    map[string]*Order
	byExternal  map[string]*Order
	placed      []*Order
	errored     []string
	failedUnion []string
	tracked     []Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		byClient:   make(map[string]*Order),
		byExternal: make(map[string]*Order),
	}
}

func (f *fakeOrderStore) Create(ctx context.Context, o *Order) error {
	f.created = append(f.created, o)
	f.byClient[o.ClientOrderID] = o
	return nil
}

func (f *fakeOrderStore) GetByClientOrderID(ctx context.Context, clientOrderID string) (*Order, error) {
	o, ok := f.byClient[clientOrderID]
	if !ok {
		return nil, apperr.NotFound("delivery order not found")
	}
	return o, nil
}

func (f *fakeOrderStore) GetByExternalOrderID(ctx context.Context, externalOrderID string) (*Order, error) {
	o, ok := f.byExternal[externalOrderID]
	if !ok {
		return nil, apperr.NotFound("delivery order not found")
	}
	return o, nil
}

func (f *fakeOrderStore) MarkPlaced(ctx context.Context, o *Order) error {
	f.placed = append(f.placed, o)
	return nil
}

func (f *fakeOrderStore) SetError(ctx context.Context, o *Order, message string) error {
	f.errored = append(f.errored, message)
	return nil
}

func (f *fakeOrderStore) UpdateTracking(ctx context.Context, o *Order) error {
	f.tracked = append(f.tracked, *o)
	return nil
}

func (f *fakeOrderStore) AppendFailedCarrier(ctx context.Context, o *Order, carrierID string) error {
	for _, id := range f.failedUnion {
		if id == carrierID {
			return nil
		}
	}
	f.failedUnion = append(f.failedUnion, carrierID)
	return nil
}

func (f *fakeOrderStore) FailedCarrierIDs(ctx context.Context, ticketID string) ([]string, error) {
	return append([]string(nil), f.failedUnion...), nil
}

type fakeTicketStore struct {
	ticket     *domain.Ticket
	product    *domain.ResearchedProduct
	statuses   []domain.Status
	failStatus domain.Status
	failMsg    string
}

func (f *fakeTicketStore) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if f.ticket == nil {
		return nil, apperr.NotFound("ticket not found")
	}
	return f.ticket, nil
}

func (f *fakeTicketStore) GetProduct(ctx context.Context, ticketID string) (*domain.ResearchedProduct, error) {
	if f.product == nil {
		return nil, apperr.NotFound("researched product not found")
	}
	return f.product, nil
}

func (f *fakeTicketStore) UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeTicketStore) Fail(ctx context.Context, ticketID string, status domain.Status, message string) error {
	f.failStatus = status
	f.failMsg = message
	return nil
}

type fakeCallReader struct {
	calls map[uuid.UUID]*calls.VendorCall
}

func (f *fakeCallReader) GetByID(ctx context.Context, id uuid.UUID) (*calls.VendorCall, error) {
	call, ok := f.calls[id]
	if !ok {
		return nil, apperr.NotFound("vendor call not found")
	}
	return call, nil
}

type fakeVendorReader struct {
	vendors map[uuid.UUID]*vendors.Vendor
}

func (f *fakeVendorReader) GetByID(ctx context.Context, id uuid.UUID) (*vendors.Vendor, error) {
	v, ok := f.vendors[id]
	if !ok {
		return nil, apperr.NotFound("vendor not found")
	}
	return v, nil
}

type fakeGeo struct {
	forward *maps.GeoPoint
	reverse *maps.GeoPoint
}

func (f *fakeGeo) Forward(ctx context.Context, address string) (*maps.GeoPoint, error) {
	if f.forward == nil {
		return nil, fmt.Errorf("no geocoding result")
	}
	return f.forward, nil
}

func (f *fakeGeo) Reverse(ctx context.Context, lat, lng float64) (*maps.GeoPoint, error) {
	if f.reverse == nil {
		return nil, fmt.Errorf("no geocoding result")
	}
	return f.reverse, nil
}

type fakeLogistics struct {
	quotes      []Quote
	providerMsg string
	quoteErr    error
	createErr   error
	orders      []OrderRequest
	seq         int
}

func (f *fakeLogistics) GetQuotes(ctx context.Context, req QuoteRequest) ([]Quote, string, error) {
	return f.quotes, f.providerMsg, f.quoteErr
}

func (f *fakeLogistics) CreateOrder(ctx context.Context, req OrderRequest) (*PlacedOrder, error) {
	f.orders = append(f.orders, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	return &PlacedOrder{OrderID: fmt.Sprintf("prov-%d", f.seq), State: "Pending"}, nil
}

type orchestratorFixture struct {
	orch      *Orchestrator
	store     *fakeOrderStore
	tickets   *fakeTicketStore
	logistics *fakeLogistics
}

func newTestOrchestrator(tickets *fakeTicketStore, callReader *fakeCallReader, vendorReader *fakeVendorReader, logistics *fakeLogistics) orchestratorFixture {
	store := newFakeOrderStore()
	geo := &fakeGeo{
		forward: &maps.GeoPoint{Lat: 12.97, Lng: 77.64, PostalCode: "560001"},
	}
	orch := NewOrchestrator(store, tickets, callReader, vendorReader, geo, logistics,
		events.NewInMemoryBus(), &config.Config{MaxDeliveryRetries: 3}, logger.New("test"))
	return orchestratorFixture{orch: orch, store: store, tickets: tickets, logistics: logistics}
}

func confirmedTicket(callID uuid.UUID) *domain.Ticket {
	return &domain.Ticket{
		ID:           "TKT-001",
		Status:       domain.StatusCompleted,
		Location:     "4th Block, Koramangala, Bengaluru",
		ContactPhone: "+919876500000",
		Result: &domain.CompiledResult{
			Status: domain.ResultFound,
			Options: []domain.Option{
				{VendorCallID: callID.String(), VendorName: "Garden World", Price: floatPtr(450)},
			},
		},
	}
}

func TestPlaceOrderBooksCheapestCarrier(t *testing.T) {
	callID := uuid.New()
	vendorID := uuid.New()
	tickets := &fakeTicketStore{ticket: confirmedTicket(callID)}
	callReader := &fakeCallReader{calls: map[uuid.UUID]*calls.VendorCall{
		callID: {ID: callID, TicketID: "TKT-001", VendorID: vendorID},
	}}
	vendorReader := &fakeVendorReader{vendors: map[uuid.UUID]*vendors.Vendor{
		vendorID: {ID: vendorID, Name: "Garden World", Phone: "+919876500001",
			Address: "12 MG Road, Indiranagar, Bengaluru 560038", Lat: 12.98, Lng: 77.62},
	}}
	logistics := &fakeLogistics{quotes: []Quote{
		{CarrierID: "lsp-a", CarrierName: "Fast Fleet", PriceForward: 80},
		{CarrierID: "lsp-b", CarrierName: "Budget Riders", PriceForward: 65},
	}}
	fx := newTestOrchestrator(tickets, callReader, vendorReader, logistics)

	if err := fx.orch.PlaceOrder(context.Background(), "TKT-001", "1", "Asha"); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if len(fx.store.created) != 1 {
		t.Fatalf("orders created = %d, want 1", len(fx.store.created))
	}
	order := fx.store.created[0]
	if order.PickupPincode != "560038" {
		t.Errorf("pickup pincode = %q, want the one embedded in the shop address", order.PickupPincode)
	}
	if order.DropPincode != "560001" {
		t.Errorf("drop pincode = %q, want the geocoded 560001", order.DropPincode)
	}
	if order.ItemValue != 450 {
		t.Errorf("item value = %v, want the option price 450", order.ItemValue)
	}

	if len(logistics.orders) != 1 || logistics.orders[0].CarrierID != "lsp-b" {
		t.Fatalf("booked = %+v, want one booking with the cheapest carrier lsp-b", logistics.orders)
	}
	if len(fx.store.placed) != 1 || fx.store.placed[0].CarrierID == nil || *fx.store.placed[0].CarrierID != "lsp-b" {
		t.Errorf("placed row should carry the booked carrier, got %+v", fx.store.placed)
	}

	want := []domain.Status{domain.StatusPlacingOrder, domain.StatusOrderPlaced}
	if len(tickets.statuses) != 2 || tickets.statuses[0] != want[0] || tickets.statuses[1] != want[1] {
		t.Errorf("ticket statuses = %v, want %v", tickets.statuses, want)
	}
}

func TestPlaceOrderRejectsUnconfirmedTicket(t *testing.T) {
	callID := uuid.New()
	ticket := confirmedTicket(callID)
	ticket.Status = domain.StatusCallingVendors
	tickets := &fakeTicketStore{ticket: ticket}
	fx := newTestOrchestrator(tickets, &fakeCallReader{}, &fakeVendorReader{}, &fakeLogistics{})

	err := fx.orch.PlaceOrder(context.Background(), "TKT-001", "1", "Asha")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want a conflict", err)
	}
	if len(tickets.statuses) != 0 {
		t.Errorf("ticket must be untouched, got status changes %v", tickets.statuses)
	}
}

func TestPlaceOrderPlacementFailureFailsDelivery(t *testing.T) {
	callID := uuid.New()
	vendorID := uuid.New()
	tickets := &fakeTicketStore{ticket: confirmedTicket(callID)}
	callReader := &fakeCallReader{calls: map[uuid.UUID]*calls.VendorCall{
		callID: {ID: callID, TicketID: "TKT-001", VendorID: vendorID},
	}}
	vendorReader := &fakeVendorReader{vendors: map[uuid.UUID]*vendors.Vendor{
		vendorID: {ID: vendorID, Name: "Garden World", Phone: "+919876500001",
			Address: "12 MG Road, Indiranagar, Bengaluru 560038"},
	}}
	logistics := &fakeLogistics{
		quotes:    []Quote{{CarrierID: "lsp-a", CarrierName: "Fast Fleet", PriceForward: 80}},
		createErr: fmt.Errorf("pickup pincode unserviceable"),
	}
	fx := newTestOrchestrator(tickets, callReader, vendorReader, logistics)

	if err := fx.orch.PlaceOrder(context.Background(), "TKT-001", "1", "Asha"); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if tickets.failStatus != domain.StatusDeliveryFailed {
		t.Errorf("fail status = %s, want delivery_failed", tickets.failStatus)
	}
	if len(fx.store.errored) != 1 || !strings.Contains(fx.store.errored[0], "Fast Fleet") {
		t.Errorf("errored = %v, want the carrier named in the recorded message", fx.store.errored)
	}
	if len(fx.store.failedUnion) != 1 || fx.store.failedUnion[0] != "lsp-a" {
		t.Errorf("failed carriers = %v, want [lsp-a]", fx.store.failedUnion)
	}
}

func TestCallbackCarrierCancellationRetriesWithNextCarrier(t *testing.T) {
	carrierA := "lsp-a"
	tickets := &fakeTicketStore{}
	logistics := &fakeLogistics{quotes: []Quote{
		{CarrierID: "lsp-a", CarrierName: "Fast Fleet", PriceForward: 60},
		{CarrierID: "lsp-b", CarrierName: "Budget Riders", PriceForward: 70},
	}}
	fx := newTestOrchestrator(tickets, &fakeCallReader{}, &fakeVendorReader{}, logistics)

	prior := &Order{
		ID: uuid.New(), TicketID: "TKT-001", VendorCallID: uuid.New(),
		ClientOrderID: "TKT-001_ab12cd34", CarrierID: &carrierA,
		PickupName: "Garden World", PickupPincode: "560038",
		CustomerName: "Asha", DropPincode: "560001", ItemValue: 450,
	}
	fx.store.byExternal["prov-0"] = prior

	err := fx.orch.HandleCallback(context.Background(), StatusCallback{
		OrderID: "prov-0", State: "Cancelled", CancelledBy: "lsp-a",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	if len(fx.store.created) != 1 {
		t.Fatalf("retry attempts created = %d, want 1", len(fx.store.created))
	}
	attempt := fx.store.created[0]
	if len(attempt.FailedCarrierIDs) != 1 || attempt.FailedCarrierIDs[0] != "lsp-a" {
		t.Errorf("attempt failed carriers = %v, want [lsp-a]", attempt.FailedCarrierIDs)
	}
	if attempt.PickupPincode != "560038" || attempt.ItemValue != 450 {
		t.Errorf("attempt must reuse the prior pickup/drop pair, got %+v", attempt)
	}
	if attempt.ClientOrderID == prior.ClientOrderID {
		t.Error("each attempt needs its own client order id")
	}

	if len(logistics.orders) != 1 || logistics.orders[0].CarrierID != "lsp-b" {
		t.Fatalf("booked = %+v, want lsp-b after excluding the cancelled carrier", logistics.orders)
	}
	want := []domain.Status{domain.StatusRetryingDelivery, domain.StatusOrderPlaced}
	if len(tickets.statuses) != 2 || tickets.statuses[0] != want[0] || tickets.statuses[1] != want[1] {
		t.Errorf("ticket statuses = %v, want %v", tickets.statuses, want)
	}
}

func TestRetryDeliveryStopsAtCap(t *testing.T) {
	tickets := &fakeTicketStore{}
	fx := newTestOrchestrator(tickets, &fakeCallReader{}, &fakeVendorReader{}, &fakeLogistics{})
	fx.store.failedUnion = []string{"lsp-a", "lsp-b", "lsp-c"}

	err := fx.orch.RetryDelivery(context.Background(), &Order{TicketID: "TKT-001"})
	if err != nil {
		t.Fatalf("RetryDelivery: %v", err)
	}

	if tickets.failStatus != domain.StatusDeliveryFailed {
		t.Errorf("fail status = %s, want delivery_failed", tickets.failStatus)
	}
	if !strings.Contains(tickets.failMsg, "3 carrier attempts exhausted") {
		t.Errorf("fail message = %q, want the exhausted-attempts count", tickets.failMsg)
	}
	if len(fx.store.created) != 0 {
		t.Error("no further attempt may be created past the cap")
	}
}

func TestCallbackTracksRiderAndMapsState(t *testing.T) {
	tickets := &fakeTicketStore{}
	fx := newTestOrchestrator(tickets, &fakeCallReader{}, &fakeVendorReader{}, &fakeLogistics{})
	fx.store.byClient["TKT-001_ab12cd34"] = &Order{
		ID: uuid.New(), TicketID: "TKT-001", ClientOrderID: "TKT-001_ab12cd34",
	}

	err := fx.orch.HandleCallback(context.Background(), StatusCallback{
		ClientOrderID: "TKT-001_ab12cd34",
		State:         "Order-picked-up",
		RiderName:     "Ravi",
		RiderPhone:    "+919876500099",
		TrackingURL:   "https://track.example/prov-7",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	if len(fx.store.tracked) != 1 {
		t.Fatalf("tracking updates = %d, want 1", len(fx.store.tracked))
	}
	got := fx.store.tracked[0]
	if got.State != "Order-picked-up" || got.RiderName == nil || *got.RiderName != "Ravi" {
		t.Errorf("tracked = %+v, want state and rider recorded", got)
	}
	if got.TrackingURL == nil || *got.TrackingURL == "" {
		t.Error("tracking url should be recorded")
	}

	if len(tickets.statuses) != 1 || tickets.statuses[0] != domain.StatusOutForDelivery {
		t.Errorf("ticket statuses = %v, want [out_for_delivery]", tickets.statuses)
	}
}
