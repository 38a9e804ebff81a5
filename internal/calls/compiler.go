package calls

import (
	"context"
	"sort"

	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/tickets/domain"
)

// priceForSort places unpriced options after every priced one.
const unknownPriceSentinel = 999999

// CompileResult scores and ranks the terminal calls of a ticket. Pure
// function: the exact composite formula and tie-break order are contracts.
func CompileResult(calls []CallWithVendor, webDeals []domain.WebDeal) *domain.CompiledResult {
	var options []domain.Option
	var contacted []domain.ContactedVendor

	for _, call := range calls {
		if call.Available != nil && *call.Available {
			options = append(options, buildOption(call))
			continue
		}
		contacted = append(contacted, domain.ContactedVendor{
			VendorName: call.VendorName,
			Phone:      call.VendorPhone,
			Outcome:    contactOutcome(call),
		})
	}

	if len(options) == 0 {
		return &domain.CompiledResult{
			Status:           domain.ResultNoAvailability,
			ContactedVendors: contacted,
			WebDeals:         webDeals,
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Composite != options[j].Composite {
			return options[i].Composite > options[j].Composite
		}
		return sortPrice(options[i]) < sortPrice(options[j])
	})

	recommendation := options[0]
	return &domain.CompiledResult{
		Status:           domain.ResultFound,
		Recommendation:   &recommendation,
		Options:          options,
		ContactedVendors: contacted,
	}
}

func buildOption(call CallWithVendor) domain.Option {
	option := domain.Option{
		VendorCallID:  call.ID.String(),
		VendorName:    call.VendorName,
		VendorPhone:   call.VendorPhone,
		VendorAddress: call.VendorAddress,
		Price:         call.Price,
		MatchType:     domain.MatchNoData,
	}
	if call.MatchedItem != nil {
		option.MatchedItem = *call.MatchedItem
	}
	if call.DeliveryTerms != nil {
		option.DeliveryTerms = *call.DeliveryTerms
	}
	if call.MatchType != nil {
		option.MatchType = *call.MatchType
	}
	if call.SpecsMatchScore != nil {
		option.SpecsMatchScore = *call.SpecsMatchScore
	}
	if call.DataQualityScore != nil {
		option.DataQuality = *call.DataQualityScore
	}
	option.Composite = domain.CompositeScore(option.MatchType, option.SpecsMatchScore, option.DataQuality)
	return option
}

func sortPrice(option domain.Option) float64 {
	if option.Price == nil {
		return unknownPriceSentinel
	}
	return *option.Price
}

func contactOutcome(call CallWithVendor) string {
	if call.Notes != nil && *call.Notes != "" {
		return *call.Notes
	}
	if call.Status == CallFailed {
		return "call failed"
	}
	return "item not available"
}

// Compile loads the ticket's terminal calls, builds the compiled result, and
// persists it with the matching ticket status. Callers must hold the compile
// claim.
func (d *Dispatcher) Compile(ctx context.Context, ticketID string) error {
	calls, err := d.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	// Web deals are best-effort context for the no-availability outcome; a
	// read failure never blocks compilation.
	webDeals, err := d.tickets.GetWebDeals(ctx, ticketID)
	if err != nil {
		d.log.WithTicketID(ticketID).Warn("failed to load web deals", "error", err)
		webDeals = nil
	}

	result := CompileResult(calls, webDeals)
	result.Message = d.analyzer.SummarizeOptions(ctx, result)

	status := domain.StatusCompleted
	if allFailed(calls) {
		status = domain.StatusCallFailed
	}
	if err := d.tickets.SetResult(ctx, ticketID, status, result); err != nil {
		return err
	}

	if status == domain.StatusCompleted {
		d.bus.Publish(ctx, events.TicketCompleted{
			BaseEvent:    events.NewBaseEvent(),
			TicketID:     ticketID,
			OptionsCount: len(result.Options),
		})
	}
	return nil
}

func allFailed(calls []CallWithVendor) bool {
	if len(calls) == 0 {
		return true
	}
	for _, call := range calls {
		if call.Status != CallFailed {
			return false
		}
	}
	return true
}
