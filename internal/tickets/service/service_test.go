package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/internal/wakeup"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	tickets       map[string]*domain.Ticket
	statuses      []domain.Status
	category      string
	product       *domain.ResearchedProduct
	deals         []domain.WebDeal
	result        *domain.CompiledResult
	failMsg       string
	webDealsSaved chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets:       make(map[string]*domain.Ticket),
		webDealsSaved: make(chan struct{}),
	}
}

func (f *fakeStore) NextTicketID(ctx context.Context) (string, error) { return "TKT-001", nil }

func (f *fakeStore) Create(ctx context.Context, t *domain.Ticket) error {
	f.tickets[t.ID] = t
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return f.tickets[id], nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) SetCategory(ctx context.Context, id, category string) error {
	f.category = category
	return nil
}

func (f *fakeStore) Fail(ctx context.Context, id string, status domain.Status, message string) error {
	f.statuses = append(f.statuses, status)
	f.failMsg = message
	return nil
}

func (f *fakeStore) SetResult(ctx context.Context, id string, status domain.Status, result *domain.CompiledResult) error {
	f.statuses = append(f.statuses, status)
	f.result = result
	return nil
}

func (f *fakeStore) SaveProduct(ctx context.Context, id string, product *domain.ResearchedProduct) error {
	f.product = product
	return nil
}

func (f *fakeStore) SaveWebDeals(ctx context.Context, id string, deals []domain.WebDeal) error {
	f.deals = deals
	close(f.webDealsSaved)
	return nil
}

func (f *fakeStore) GetWebDeals(ctx context.Context, id string) ([]domain.WebDeal, error) {
	return f.deals, nil
}

type fakeIntel struct {
	classification *ai.Classification
	classifyErr    error
	analysis       *ai.QueryAnalysis
	product        *domain.ResearchedProduct
	rerankOrder    []string
	deals          []domain.WebDeal
	dealsRelease   chan struct{}
}

func (f *fakeIntel) Classify(ctx context.Context, query string) (*ai.Classification, error) {
	return f.classification, f.classifyErr
}

func (f *fakeIntel) AnalyzeQuery(ctx context.Context, query, location string) (*ai.QueryAnalysis, error) {
	return f.analysis, nil
}

func (f *fakeIntel) ResearchProduct(ctx context.Context, query string, analysis *ai.QueryAnalysis) (*domain.ResearchedProduct, error) {
	return f.product, nil
}

func (f *fakeIntel) Rerank(ctx context.Context, product *domain.ResearchedProduct, candidates []ai.RerankCandidate) []string {
	if f.rerankOrder != nil {
		return f.rerankOrder
	}
	original := make([]string, len(candidates))
	for i, c := range candidates {
		original[i] = c.PlaceID
	}
	return original
}

func (f *fakeIntel) FindWebDeals(ctx context.Context, product *domain.ResearchedProduct) []domain.WebDeal {
	if f.dealsRelease != nil {
		<-f.dealsRelease
	}
	return f.deals
}

type fakeGeocoder struct{}

func (fakeGeocoder) Forward(ctx context.Context, address string) (*maps.GeoPoint, error) {
	return &maps.GeoPoint{Lat: 12.97, Lng: 77.59, PostalCode: "560038"}, nil
}

type fakeFinder struct {
	found []vendors.Vendor
	input vendors.DiscoveryInput
}

func (f *fakeFinder) Discover(ctx context.Context, in vendors.DiscoveryInput) ([]vendors.Vendor, error) {
	f.input = in
	return f.found, nil
}

type fakeVendorStore struct {
	upserted  []vendors.Vendor
	ranks     []string
	assignIDs []uuid.UUID
}

// UpsertAll mirrors the repository contract: the persisted row ids are
// written back into the slice.
func (f *fakeVendorStore) UpsertAll(ctx context.Context, list []vendors.Vendor) error {
	for i := range list {
		if i < len(f.assignIDs) {
			list[i].ID = f.assignIDs[i]
		}
	}
	f.upserted = list
	return nil
}

func (f *fakeVendorStore) UpdateRanks(ctx context.Context, ticketID string, orderedPlaceIDs []string) error {
	f.ranks = orderedPlaceIDs
	return nil
}

type fakeDispatcher struct {
	dispatched []vendors.Vendor
}

func (f *fakeDispatcher) DispatchAll(ctx context.Context, ticketID string, ranked []vendors.Vendor, product *domain.ResearchedProduct) (int, error) {
	f.dispatched = ranked
	return len(ranked), nil
}

type fakeReminders struct {
	scheduled *wakeup.Schedule
}

func (f *fakeReminders) Schedule(ctx context.Context, ticketID, phone, name, message string, remindAt time.Time) (*wakeup.Schedule, error) {
	f.scheduled = &wakeup.Schedule{TicketID: ticketID, Phone: phone, RemindAt: remindAt}
	return f.scheduled, nil
}

func pipelineConfig() config.PipelineConfig {
	return &config.Config{MaxVendors: 5, CallMaxRetries: 2, CallRetryDelay: 2 * time.Minute, MaxDeliveryRetries: 3}
}

func newTestService(store *fakeStore, intel *fakeIntel, finder *fakeFinder, vendorStore *fakeVendorStore, dispatcher *fakeDispatcher, reminders *fakeReminders) *Service {
	return New(store, intel, fakeGeocoder{}, finder, vendorStore, dispatcher, reminders,
		events.NewInMemoryBus(), pipelineConfig(), logger.New("test"))
}

func testTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:           "TKT-001",
		Status:       domain.StatusReceived,
		Query:        "blue ceramic flower pot",
		Location:     "Indiranagar, Bengaluru 560038",
		ContactPhone: "+919876543210",
	}
}

func orderIntel() *fakeIntel {
	return &fakeIntel{
		classification: &ai.Classification{Category: ai.CategoryOrder},
		analysis:       &ai.QueryAnalysis{SearchQueries: []string{"flower pot shop near Indiranagar"}},
		product:        &domain.ResearchedProduct{Name: "ceramic flower pot", RequiredSpecs: map[string]string{"color": "blue"}},
	}
}

func TestPipelineOrderBranch(t *testing.T) {
	store := newFakeStore()
	finder := &fakeFinder{found: []vendors.Vendor{
		{PlaceID: "p1", Name: "Garden World", Rank: 1},
		{PlaceID: "p2", Name: "Pot Palace", Rank: 2},
	}}
	dispatcher := &fakeDispatcher{}
	vendorStore := &fakeVendorStore{}

	svc := newTestService(store, orderIntel(), finder, vendorStore, dispatcher, &fakeReminders{})
	svc.runPipeline(testTicket())

	want := []domain.Status{
		domain.StatusClassifying, domain.StatusAnalyzing, domain.StatusResearching,
		domain.StatusFindingVendors, domain.StatusCallingVendors,
	}
	if len(store.statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", store.statuses, want)
	}
	for i, s := range want {
		if store.statuses[i] != s {
			t.Errorf("status[%d] = %s, want %s", i, store.statuses[i], s)
		}
	}

	if store.category != ai.CategoryOrder {
		t.Errorf("category = %s, want order", store.category)
	}
	if store.product == nil {
		t.Error("researched product was not saved")
	}
	if len(dispatcher.dispatched) != 2 {
		t.Fatalf("dispatched %d vendors, want 2", len(dispatcher.dispatched))
	}
	if len(vendorStore.upserted) != 2 {
		t.Errorf("upserted %d vendors, want 2", len(vendorStore.upserted))
	}
	if finder.input.MaxVendors != 5 {
		t.Errorf("discovery max vendors = %d, want 5", finder.input.MaxVendors)
	}
}

func TestPipelineRerankReordersDispatch(t *testing.T) {
	store := newFakeStore()
	intel := orderIntel()
	intel.rerankOrder = []string{"p2", "p1"}
	finder := &fakeFinder{found: []vendors.Vendor{
		{PlaceID: "p1", Name: "Garden World", Rank: 1},
		{PlaceID: "p2", Name: "Pot Palace", Rank: 2},
	}}
	dispatcher := &fakeDispatcher{}
	vendorStore := &fakeVendorStore{}

	svc := newTestService(store, intel, finder, vendorStore, dispatcher, &fakeReminders{})
	svc.runPipeline(testTicket())

	if dispatcher.dispatched[0].PlaceID != "p2" {
		t.Errorf("first dispatched = %s, want p2", dispatcher.dispatched[0].PlaceID)
	}
	if dispatcher.dispatched[0].Rank != 1 || dispatcher.dispatched[1].Rank != 2 {
		t.Errorf("ranks not rewritten: %d, %d", dispatcher.dispatched[0].Rank, dispatcher.dispatched[1].Rank)
	}
	if len(vendorStore.ranks) != 2 || vendorStore.ranks[0] != "p2" {
		t.Errorf("persisted rank order = %v, want [p2 p1]", vendorStore.ranks)
	}
}

func TestPipelineRerankMismatchKeepsOriginalOrder(t *testing.T) {
	store := newFakeStore()
	intel := orderIntel()
	intel.rerankOrder = []string{"p2", "bogus"}
	finder := &fakeFinder{found: []vendors.Vendor{
		{PlaceID: "p1", Rank: 1},
		{PlaceID: "p2", Rank: 2},
	}}
	dispatcher := &fakeDispatcher{}

	svc := newTestService(store, intel, finder, &fakeVendorStore{}, dispatcher, &fakeReminders{})
	svc.runPipeline(testTicket())

	if dispatcher.dispatched[0].PlaceID != "p1" {
		t.Errorf("first dispatched = %s, want p1 (original order)", dispatcher.dispatched[0].PlaceID)
	}
}

func TestPipelineReminderBranch(t *testing.T) {
	store := newFakeStore()
	remindAt := time.Now().Add(8 * time.Hour).Truncate(time.Second)
	intel := &fakeIntel{classification: &ai.Classification{
		Category: ai.CategoryReminder,
		RemindAt: remindAt.Format(time.RFC3339),
	}}
	reminders := &fakeReminders{}

	svc := newTestService(store, intel, &fakeFinder{}, &fakeVendorStore{}, &fakeDispatcher{}, reminders)
	svc.runPipeline(testTicket())

	if reminders.scheduled == nil {
		t.Fatal("reminder was not scheduled")
	}
	if !reminders.scheduled.RemindAt.Equal(remindAt) {
		t.Errorf("remind at = %v, want %v", reminders.scheduled.RemindAt, remindAt)
	}
	last := store.statuses[len(store.statuses)-1]
	if last != domain.StatusCompleted {
		t.Errorf("final status = %s, want completed", last)
	}
}

func TestPipelineReminderBadTimeFails(t *testing.T) {
	store := newFakeStore()
	intel := &fakeIntel{classification: &ai.Classification{
		Category: ai.CategoryReminder,
		RemindAt: "tomorrow-ish",
	}}

	svc := newTestService(store, intel, &fakeFinder{}, &fakeVendorStore{}, &fakeDispatcher{}, &fakeReminders{})
	svc.runPipeline(testTicket())

	last := store.statuses[len(store.statuses)-1]
	if last != domain.StatusFailed {
		t.Errorf("final status = %s, want failed", last)
	}
}

func TestPipelineClassifyFailure(t *testing.T) {
	store := newFakeStore()
	intel := &fakeIntel{classifyErr: errors.New("model unavailable")}

	svc := newTestService(store, intel, &fakeFinder{}, &fakeVendorStore{}, &fakeDispatcher{}, &fakeReminders{})
	svc.runPipeline(testTicket())

	last := store.statuses[len(store.statuses)-1]
	if last != domain.StatusFailed {
		t.Errorf("final status = %s, want failed", last)
	}
	if store.failMsg == "" {
		t.Error("failure message should be recorded")
	}
}

func TestPipelineNoVendorsAttachesWebDeals(t *testing.T) {
	store := newFakeStore()
	intel := orderIntel()
	intel.deals = []domain.WebDeal{{Title: "Blue pot online", Seller: "bigshop"}}
	dispatcher := &fakeDispatcher{}

	svc := newTestService(store, intel, &fakeFinder{}, &fakeVendorStore{}, dispatcher, &fakeReminders{})
	svc.runPipeline(testTicket())

	last := store.statuses[len(store.statuses)-1]
	if last != domain.StatusNoVendors {
		t.Fatalf("final status = %s, want no_vendors", last)
	}
	if store.result == nil || len(store.result.WebDeals) != 1 {
		t.Errorf("web deals should ride along on the no-vendors result: %+v", store.result)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Error("no calls should be dispatched without vendors")
	}
}

func TestPipelineWebDealsDoNotDelayDispatch(t *testing.T) {
	store := newFakeStore()
	intel := orderIntel()
	intel.deals = []domain.WebDeal{{Title: "Blue pot online", Seller: "bigshop"}}
	intel.dealsRelease = make(chan struct{})
	finder := &fakeFinder{found: []vendors.Vendor{{PlaceID: "p1", Name: "Garden World", Rank: 1}}}
	dispatcher := &fakeDispatcher{}

	svc := newTestService(store, intel, finder, &fakeVendorStore{}, dispatcher, &fakeReminders{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.runPipeline(testTicket())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline waited for the web-deals search before dispatching calls")
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("dispatched %d vendors, want 1", len(dispatcher.dispatched))
	}

	// The search finishes later and still persists its deals.
	close(intel.dealsRelease)
	select {
	case <-store.webDealsSaved:
	case <-time.After(2 * time.Second):
		t.Fatal("web deals were never persisted")
	}
	if len(store.deals) != 1 {
		t.Errorf("persisted deals = %d, want 1", len(store.deals))
	}
}

func TestPipelineDispatchUsesPersistedVendorIDs(t *testing.T) {
	store := newFakeStore()
	persisted := uuid.New()
	finder := &fakeFinder{found: []vendors.Vendor{
		{ID: uuid.New(), PlaceID: "p1", Name: "Garden World", Rank: 1},
	}}
	dispatcher := &fakeDispatcher{}
	vendorStore := &fakeVendorStore{assignIDs: []uuid.UUID{persisted}}

	svc := newTestService(store, orderIntel(), finder, vendorStore, dispatcher, &fakeReminders{})
	svc.runPipeline(testTicket())

	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("dispatched %d vendors, want 1", len(dispatcher.dispatched))
	}
	if dispatcher.dispatched[0].ID != persisted {
		t.Errorf("dispatched vendor id = %s, want the persisted id %s", dispatcher.dispatched[0].ID, persisted)
	}
}

func TestCreateTicketGeneratesID(t *testing.T) {
	store := newFakeStore()
	intel := orderIntel()

	svc := newTestService(store, intel, &fakeFinder{}, &fakeVendorStore{}, &fakeDispatcher{}, &fakeReminders{})
	ticket, err := svc.CreateTicket(context.Background(), "", "a ladder", "Koramangala, Bengaluru", "+919876543210", "")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.ID != "TKT-001" {
		t.Errorf("id = %s, want TKT-001", ticket.ID)
	}
	if ticket.Status != domain.StatusReceived {
		t.Errorf("status = %s, want received", ticket.Status)
	}
}
