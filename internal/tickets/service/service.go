// Package service runs the ticket fulfillment pipeline from admission to the
// point where vendor calls take over.
package service

import (
	"context"
	"fmt"
	"time"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/internal/wakeup"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"
)

// pipelineTimeout bounds a single ticket's background pipeline run. Vendor
// calls continue past it; only the synchronous steps are covered.
const pipelineTimeout = 10 * time.Minute

// TicketStore is the slice of the tickets repository the pipeline needs.
type TicketStore interface {
	NextTicketID(ctx context.Context) (string, error)
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error
	SetCategory(ctx context.Context, ticketID, category string) error
	Fail(ctx context.Context, ticketID string, status domain.Status, message string) error
	SetResult(ctx context.Context, ticketID string, status domain.Status, result *domain.CompiledResult) error
	SaveProduct(ctx context.Context, ticketID string, product *domain.ResearchedProduct) error
	SaveWebDeals(ctx context.Context, ticketID string, deals []domain.WebDeal) error
	GetWebDeals(ctx context.Context, ticketID string) ([]domain.WebDeal, error)
}

// Intelligence is the slice of the model collaborators the pipeline needs.
type Intelligence interface {
	Classify(ctx context.Context, query string) (*ai.Classification, error)
	AnalyzeQuery(ctx context.Context, query, location string) (*ai.QueryAnalysis, error)
	ResearchProduct(ctx context.Context, query string, analysis *ai.QueryAnalysis) (*domain.ResearchedProduct, error)
	Rerank(ctx context.Context, product *domain.ResearchedProduct, candidates []ai.RerankCandidate) []string
	FindWebDeals(ctx context.Context, product *domain.ResearchedProduct) []domain.WebDeal
}

// Geocoder resolves the user's location for search biasing.
type Geocoder interface {
	Forward(ctx context.Context, address string) (*maps.GeoPoint, error)
}

// VendorFinder runs vendor discovery.
type VendorFinder interface {
	Discover(ctx context.Context, in vendors.DiscoveryInput) ([]vendors.Vendor, error)
}

// VendorStore persists discovered vendors.
type VendorStore interface {
	UpsertAll(ctx context.Context, list []vendors.Vendor) error
	UpdateRanks(ctx context.Context, ticketID string, orderedPlaceIDs []string) error
}

// CallDispatcher hands the ranked vendor list to the calling state machine.
type CallDispatcher interface {
	DispatchAll(ctx context.Context, ticketID string, ranked []vendors.Vendor, product *domain.ResearchedProduct) (int, error)
}

// ReminderBooker schedules wake-up calls for reminder tickets.
type ReminderBooker interface {
	Schedule(ctx context.Context, ticketID, phone, name, message string, remindAt time.Time) (*wakeup.Schedule, error)
}

// Service is the ticket pipeline.
type Service struct {
	repo        TicketStore
	intel       Intelligence
	geocoder    Geocoder
	finder      VendorFinder
	vendorStore VendorStore
	dispatcher  CallDispatcher
	reminders   ReminderBooker
	bus         events.Bus
	maxVendors  int
	log         *logger.Logger
}

// New wires the ticket pipeline service.
func New(repo TicketStore, intel Intelligence, geocoder Geocoder, finder VendorFinder, vendorStore VendorStore, dispatcher CallDispatcher, reminders ReminderBooker, bus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		intel:       intel,
		geocoder:    geocoder,
		finder:      finder,
		vendorStore: vendorStore,
		dispatcher:  dispatcher,
		reminders:   reminders,
		bus:         bus,
		maxVendors:  cfg.GetMaxVendors(),
		log:         log,
	}
}

// CreateTicket admits a ticket and starts its pipeline in the background.
// An empty requested id gets a generated TKT-NNN; a requested id already in
// an active lifecycle is rejected with a conflict.
func (s *Service) CreateTicket(ctx context.Context, requestedID, query, location, phone, name string) (*domain.Ticket, error) {
	id := requestedID
	if id == "" {
		generated, err := s.repo.NextTicketID(ctx)
		if err != nil {
			return nil, err
		}
		id = generated
	}

	ticket := &domain.Ticket{
		ID:           id,
		Status:       domain.StatusReceived,
		Query:        query,
		Location:     location,
		ContactPhone: phone,
		ContactName:  name,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.TicketReceived{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticket.ID,
		Query:     ticket.Query,
	})

	go s.runPipeline(ticket)
	return ticket, nil
}

// GetTicket returns a ticket's current state.
func (s *Service) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.repo.GetByID(ctx, ticketID)
}

func (s *Service) runPipeline(ticket *domain.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	log := s.log.WithTicketID(ticket.ID)

	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusClassifying); err != nil {
		log.Error("failed to start pipeline", "error", err)
		return
	}

	classification, err := s.intel.Classify(ctx, ticket.Query)
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("classification failed: %v", err))
		return
	}
	if err := s.repo.SetCategory(ctx, ticket.ID, classification.Category); err != nil {
		log.Error("failed to store category", "error", err)
	}

	if classification.Category == ai.CategoryReminder {
		s.scheduleReminder(ctx, ticket, classification)
		return
	}

	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusAnalyzing); err != nil {
		log.Error("failed to update status", "error", err)
		return
	}
	analysis, err := s.intel.AnalyzeQuery(ctx, ticket.Query, ticket.Location)
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("query analysis failed: %v", err))
		return
	}

	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusResearching); err != nil {
		log.Error("failed to update status", "error", err)
		return
	}
	product, err := s.intel.ResearchProduct(ctx, ticket.Query, analysis)
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("product research failed: %v", err))
		return
	}
	if err := s.repo.SaveProduct(ctx, ticket.ID, product); err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("failed to store researched product: %v", err))
		return
	}

	// Web deals only enrich the final result and must never hold up vendor
	// calling. The search runs on its own context so it can outlive the
	// pipeline; the compiler and the no-vendors path read the persisted row.
	webDealsDone := make(chan struct{})
	go func() {
		defer close(webDealsDone)
		dealsCtx, cancelDeals := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancelDeals()
		deals := s.intel.FindWebDeals(dealsCtx, product)
		if len(deals) == 0 {
			return
		}
		if err := s.repo.SaveWebDeals(dealsCtx, ticket.ID, deals); err != nil {
			log.Error("failed to store web deals", "error", err)
		}
	}()

	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusFindingVendors); err != nil {
		log.Error("failed to update status", "error", err)
		return
	}

	var userPoint *maps.GeoPoint
	if point, err := s.geocoder.Forward(ctx, ticket.Location); err != nil {
		log.Warn("failed to geocode user location, searching without bias", "error", err)
	} else {
		userPoint = point
	}

	found, err := s.finder.Discover(ctx, vendors.DiscoveryInput{
		TicketID:       ticket.ID,
		Queries:        analysis.SearchQueries,
		Location:       ticket.Location,
		SpecificVendor: analysis.SpecificVendor,
		UserPoint:      userPoint,
		MaxVendors:     s.maxVendors,
	})
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("vendor discovery failed: %v", err))
		return
	}
	if len(found) == 0 {
		<-webDealsDone
		s.finishNoVendors(ctx, ticket.ID)
		return
	}

	if err := s.vendorStore.UpsertAll(ctx, found); err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("failed to store vendors: %v", err))
		return
	}
	found = s.rerank(ctx, ticket.ID, product, found)

	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusCallingVendors); err != nil {
		log.Error("failed to update status", "error", err)
		return
	}
	placed, err := s.dispatcher.DispatchAll(ctx, ticket.ID, found, product)
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("call dispatch failed: %v", err))
		return
	}
	log.Info("vendor calls dispatched", "placed", placed, "vendors", len(found))
}

// rerank lets the model reorder the discovered vendors. Any disagreement or
// failure keeps the deterministic discovery order.
func (s *Service) rerank(ctx context.Context, ticketID string, product *domain.ResearchedProduct, found []vendors.Vendor) []vendors.Vendor {
	if len(found) < 2 {
		return found
	}

	candidates := make([]ai.RerankCandidate, len(found))
	byPlaceID := make(map[string]vendors.Vendor, len(found))
	for i, v := range found {
		candidates[i] = ai.RerankCandidate{
			PlaceID:     v.PlaceID,
			Name:        v.Name,
			Address:     v.Address,
			Rating:      v.Rating,
			RatingCount: v.RatingCount,
		}
		byPlaceID[v.PlaceID] = v
	}

	ordered := s.intel.Rerank(ctx, product, candidates)
	reordered := make([]vendors.Vendor, 0, len(found))
	for i, placeID := range ordered {
		v, ok := byPlaceID[placeID]
		if !ok {
			return found
		}
		v.Rank = i + 1
		reordered = append(reordered, v)
	}
	if len(reordered) != len(found) {
		return found
	}

	if err := s.vendorStore.UpdateRanks(ctx, ticketID, ordered); err != nil {
		s.log.WithTicketID(ticketID).Error("failed to persist reranked order", "error", err)
		return found
	}
	return reordered
}

func (s *Service) scheduleReminder(ctx context.Context, ticket *domain.Ticket, classification *ai.Classification) {
	remindAt, err := time.Parse(time.RFC3339, classification.RemindAt)
	if err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("could not understand the reminder time %q", classification.RemindAt))
		return
	}

	if _, err := s.reminders.Schedule(ctx, ticket.ID, ticket.ContactPhone, ticket.ContactName, ticket.Query, remindAt); err != nil {
		s.fail(ctx, ticket.ID, fmt.Sprintf("failed to schedule reminder call: %v", err))
		return
	}
	if err := s.repo.UpdateStatus(ctx, ticket.ID, domain.StatusCompleted); err != nil {
		s.log.WithTicketID(ticket.ID).Error("failed to complete reminder ticket", "error", err)
	}
}

// finishNoVendors ends the ticket in no_vendors, attaching any web deals so
// the user still gets something actionable.
func (s *Service) finishNoVendors(ctx context.Context, ticketID string) {
	deals, err := s.repo.GetWebDeals(ctx, ticketID)
	if err != nil {
		s.log.WithTicketID(ticketID).Error("failed to load web deals", "error", err)
	}

	result := &domain.CompiledResult{
		Status:   domain.ResultNoAvailability,
		Message:  "No local vendors were found for this product.",
		WebDeals: deals,
	}
	if err := s.repo.SetResult(ctx, ticketID, domain.StatusNoVendors, result); err != nil {
		s.log.WithTicketID(ticketID).Error("failed to finish ticket without vendors", "error", err)
		return
	}
	s.bus.Publish(ctx, events.TicketFailed{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticketID,
		Status:    string(domain.StatusNoVendors),
		Reason:    result.Message,
	})
}

func (s *Service) fail(ctx context.Context, ticketID, message string) {
	if err := s.repo.Fail(ctx, ticketID, domain.StatusFailed, message); err != nil {
		s.log.WithTicketID(ticketID).Error("failed to record pipeline failure", "error", err)
		return
	}
	s.log.WithTicketID(ticketID).Warn("pipeline failed", "reason", message)
	s.bus.Publish(ctx, events.TicketFailed{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticketID,
		Status:    string(domain.StatusFailed),
		Reason:    message,
	})
}
