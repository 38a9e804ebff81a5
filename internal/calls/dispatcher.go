package calls

import (
	"context"
	"time"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
)

// CallStore is the slice of the vendor-calls repository the dispatcher needs.
type CallStore interface {
	CreateAll(ctx context.Context, calls []VendorCall) error
	GetByExternalID(ctx context.Context, externalCallID string) (*VendorCall, error)
	GetWithVendor(ctx context.Context, id uuid.UUID) (*CallWithVendor, error)
	ListByTicket(ctx context.Context, ticketID string) ([]CallWithVendor, error)
	MarkCalling(ctx context.Context, id uuid.UUID, externalCallID string, incrementRetry bool) error
	MarkTranscriptReceived(ctx context.Context, id uuid.UUID, transcript string) error
	MarkRetryScheduled(ctx context.Context, id uuid.UUID) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, status CallStatus, analysis *ai.TranscriptAnalysis) error
}

// TicketStore is the slice of the tickets repository the dispatcher needs.
type TicketStore interface {
	GetProduct(ctx context.Context, ticketID string) (*domain.ResearchedProduct, error)
	SetResult(ctx context.Context, ticketID string, status domain.Status, result *domain.CompiledResult) error
	ClaimCompile(ctx context.Context, ticketID string) (bool, error)
	GetWebDeals(ctx context.Context, ticketID string) ([]domain.WebDeal, error)
}

// Analyzer is the slice of the model service the dispatcher needs.
type Analyzer interface {
	AnalyzeTranscript(ctx context.Context, transcript string, toolReports interface{}, product *domain.ResearchedProduct) (*ai.TranscriptAnalysis, error)
	SummarizeOptions(ctx context.Context, result *domain.CompiledResult) string
}

// CallPlacer places one outbound call and returns the external call id.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req CallRequest) (string, error)
}

// RetryScheduler enqueues the delayed retry task for a vendor call.
type RetryScheduler interface {
	ScheduleCallRetry(ctx context.Context, vendorCallID uuid.UUID, delay time.Duration) error
}

// Dispatcher drives the per-vendor call state machine: initial dispatch,
// webhook-driven completion, bounded retries, and the compile-once handoff.
type Dispatcher struct {
	repo       CallStore
	tickets    TicketStore
	placer     CallPlacer
	analyzer   Analyzer
	scheduler  RetryScheduler
	bus        events.Bus
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
}

// NewDispatcher creates the call dispatcher.
func NewDispatcher(repo CallStore, tickets TicketStore, placer CallPlacer, analyzer Analyzer, scheduler RetryScheduler, bus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		tickets:    tickets,
		placer:     placer,
		analyzer:   analyzer,
		scheduler:  scheduler,
		bus:        bus,
		maxRetries: cfg.GetCallMaxRetries(),
		retryDelay: cfg.GetCallRetryDelay(),
		log:        log,
	}
}

// DispatchAll creates one VendorCall per ranked vendor and places the calls.
// A placement failure fails that one call; the ticket proceeds with the rest.
// Returns the number of calls successfully placed.
func (d *Dispatcher) DispatchAll(ctx context.Context, ticketID string, ranked []vendors.Vendor, product *domain.ResearchedProduct) (int, error) {
	pending := make([]VendorCall, 0, len(ranked))
	for _, v := range ranked {
		pending = append(pending, VendorCall{
			ID:       uuid.New(),
			TicketID: ticketID,
			VendorID: v.ID,
			Status:   CallPending,
		})
	}
	if err := d.repo.CreateAll(ctx, pending); err != nil {
		return 0, err
	}

	log := d.log.WithTicketID(ticketID)
	placed := 0
	for i, call := range pending {
		externalID, err := d.placer.PlaceCall(ctx, CallRequest{
			Phone:        ranked[i].Phone,
			VendorName:   ranked[i].Name,
			TicketID:     ticketID,
			VendorCallID: call.ID.String(),
			Product:      product,
		})
		if err != nil {
			log.Warn("call placement failed", "vendor", ranked[i].Name, "error", err)
			d.failWithReason(ctx, call.ID, "call-placement-failed")
			continue
		}
		if err := d.repo.MarkCalling(ctx, call.ID, externalID, false); err != nil {
			log.Error("failed to record placed call", "error", err)
			continue
		}
		placed++
	}

	// Every placement can fail before any webhook arrives; the compile check
	// must still run so the ticket does not hang in calling_vendors.
	if placed == 0 {
		d.maybeCompile(ctx, ticketID)
	}
	return placed, nil
}

// HandleEndOfCall processes an end-of-call report from the provider webhook.
func (d *Dispatcher) HandleEndOfCall(ctx context.Context, event EndOfCallReport) error {
	call, err := d.repo.GetByExternalID(ctx, event.ExternalCallID)
	if err != nil {
		return err
	}
	log := d.log.WithTicketID(call.TicketID)

	if call.Status.Terminal() {
		// Provider redelivery after we already settled this call.
		return nil
	}

	switch {
	case event.Transcript != "":
		if err := d.repo.MarkTranscriptReceived(ctx, call.ID, event.Transcript); err != nil {
			return err
		}
		d.analyzeTranscript(ctx, call, event)

	case ReasonRetryable(event.EndedReason) && call.RetryCount < d.maxRetries:
		if err := d.repo.MarkRetryScheduled(ctx, call.ID); err != nil {
			return err
		}
		if err := d.scheduler.ScheduleCallRetry(ctx, call.ID, d.retryDelay); err != nil {
			log.Error("failed to schedule call retry", "error", err)
			d.failWithReason(ctx, call.ID, event.EndedReason)
		} else {
			log.Info("call retry scheduled", "vendor_call_id", call.ID, "attempt", call.RetryCount+1)
			// Not terminal: the retry keeps the call in flight, so no
			// compile check here.
			return nil
		}

	default:
		d.failWithReason(ctx, call.ID, event.EndedReason)
	}

	d.maybeCompile(ctx, call.TicketID)
	return nil
}

// RetryCall re-dispatches a parked call. Invoked by the delayed worker task;
// the status re-check guards against superseding events that settled the
// call while the delay elapsed.
func (d *Dispatcher) RetryCall(ctx context.Context, vendorCallID uuid.UUID) error {
	call, err := d.repo.GetWithVendor(ctx, vendorCallID)
	if err != nil {
		return err
	}
	if call.Status != CallRetryScheduled {
		d.log.WithTicketID(call.TicketID).Info("skipping stale call retry", "status", call.Status)
		return nil
	}

	product, err := d.tickets.GetProduct(ctx, call.TicketID)
	if err != nil {
		return err
	}

	externalID, err := d.placer.PlaceCall(ctx, CallRequest{
		Phone:        call.VendorPhone,
		VendorName:   call.VendorName,
		TicketID:     call.TicketID,
		VendorCallID: call.ID.String(),
		Product:      product,
	})
	if err != nil {
		d.log.WithTicketID(call.TicketID).Warn("retry call placement failed", "error", err)
		d.failWithReason(ctx, call.ID, "call-placement-failed")
		d.maybeCompile(ctx, call.TicketID)
		return nil
	}

	return d.repo.MarkCalling(ctx, call.ID, externalID, true)
}

// analyzeTranscript runs the transcript analyzer and persists the outcome.
// An analyzer failure degrades to the neutral no-data analysis; the call
// still terminates so the ticket can compile.
func (d *Dispatcher) analyzeTranscript(ctx context.Context, call *VendorCall, event EndOfCallReport) {
	product, err := d.tickets.GetProduct(ctx, call.TicketID)
	if err != nil {
		d.failWithReason(ctx, call.ID, "product-context-missing")
		return
	}

	analysis, err := d.analyzer.AnalyzeTranscript(ctx, event.Transcript, event.ToolReports, product)
	if err != nil {
		d.log.WithTicketID(call.TicketID).Warn("transcript analysis failed", "error", err)
		d.failWithReason(ctx, call.ID, "analysis-failed")
		return
	}

	if err := d.repo.SaveAnalysis(ctx, call.ID, CallAnalyzed, analysis); err != nil {
		d.log.WithTicketID(call.TicketID).Error("failed to save call analysis", "error", err)
	}
}

// failWithReason records the neutral no-data analysis with the literal
// termination reason and marks the call failed.
func (d *Dispatcher) failWithReason(ctx context.Context, callID uuid.UUID, reason string) {
	neutral := &ai.TranscriptAnalysis{
		Available:        nil,
		MatchType:        domain.MatchNoData,
		SpecsMatchScore:  0,
		DataQualityScore: 0,
		Notes:            reason,
	}
	if err := d.repo.SaveAnalysis(ctx, callID, CallFailed, neutral); err != nil {
		d.log.Error("failed to record call failure", "vendor_call_id", callID, "error", err)
	}
}

// maybeCompile runs the "is everyone done" check. The atomic claim in the
// store guarantees at most one caller compiles per ticket, however many
// webhook tasks race here.
func (d *Dispatcher) maybeCompile(ctx context.Context, ticketID string) {
	claimed, err := d.tickets.ClaimCompile(ctx, ticketID)
	if err != nil {
		d.log.WithTicketID(ticketID).Error("compile claim failed", "error", err)
		return
	}
	if !claimed {
		return
	}
	if err := d.Compile(ctx, ticketID); err != nil {
		d.log.WithTicketID(ticketID).Error("result compilation failed", "error", err)
	}
}
