package calls

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent marks a webhook payload whose event type we do not handle.
// Handlers acknowledge these with 200 so the provider stops redelivering.
var ErrUnknownEvent = errors.New("unknown webhook event type")

// WebhookEvent is the closed set of inbound voice-provider events.
type WebhookEvent interface {
	eventKind() string
}

// EndOfCallReport signals that a placed call finished, successfully or not.
type EndOfCallReport struct {
	ExternalCallID string
	Transcript     string
	EndedReason    string
	ToolReports    []ToolReport
}

func (EndOfCallReport) eventKind() string { return "end-of-call-report" }

// CallStatusUpdate is an informational mid-call status change.
type CallStatusUpdate struct {
	ExternalCallID string
	Status         string
}

func (CallStatusUpdate) eventKind() string { return "status-update" }

// ToolReport is the closed set of structured reports the assistant can make
// mid-call through its tools.
type ToolReport interface {
	reportKind() string
}

// AvailabilityReport says whether the vendor has the item.
type AvailabilityReport struct {
	Available bool   `json:"available"`
	Item      string `json:"item"`
}

func (AvailabilityReport) reportKind() string { return "availability" }

// PriceReport carries a quoted price.
type PriceReport struct {
	Price float64 `json:"price"`
}

func (PriceReport) reportKind() string { return "price" }

// DeliveryTermsReport carries the vendor's delivery terms.
type DeliveryTermsReport struct {
	Terms string `json:"terms"`
}

func (DeliveryTermsReport) reportKind() string { return "terms" }

// Tool names the assistant is configured with.
const (
	toolReportAvailability  = "report_availability"
	toolReportPrice         = "report_price"
	toolReportDeliveryTerms = "report_delivery_terms"
)

// wire shapes, one per event. Parsing is strict: each known event type has
// exactly one parser producing a validated struct; anything else is
// ErrUnknownEvent, never a silently-empty event.
type webhookEnvelope struct {
	Message struct {
		Type string `json:"type"`
		Call struct {
			ID string `json:"id"`
		} `json:"call"`
		Status      string `json:"status"`
		EndedReason string `json:"endedReason"`
		Transcript  string `json:"transcript"`
		Artifact    struct {
			Transcript string `json:"transcript"`
		} `json:"artifact"`
		ToolCalls []struct {
			Function struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"function"`
		} `json:"toolCalls"`
	} `json:"message"`
}

// ParseWebhook decodes a raw provider callback into one of the known event
// variants.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	msg := envelope.Message
	switch msg.Type {
	case "end-of-call-report":
		if msg.Call.ID == "" {
			return nil, fmt.Errorf("end-of-call report missing call id")
		}
		transcript := msg.Transcript
		if transcript == "" {
			transcript = msg.Artifact.Transcript
		}
		event := EndOfCallReport{
			ExternalCallID: msg.Call.ID,
			Transcript:     transcript,
			EndedReason:    msg.EndedReason,
		}
		for _, call := range msg.ToolCalls {
			report, ok, err := parseToolReport(call.Function.Name, call.Function.Arguments)
			if err != nil {
				return nil, err
			}
			if ok {
				event.ToolReports = append(event.ToolReports, report)
			}
		}
		return event, nil

	case "status-update":
		if msg.Call.ID == "" {
			return nil, fmt.Errorf("status update missing call id")
		}
		return CallStatusUpdate{ExternalCallID: msg.Call.ID, Status: msg.Status}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
}

// parseToolReport matches the known tool names exhaustively; tools we did not
// configure are skipped (ok=false), malformed arguments for a known tool are
// an error.
func parseToolReport(name string, arguments json.RawMessage) (ToolReport, bool, error) {
	switch name {
	case toolReportAvailability:
		var report AvailabilityReport
		if err := json.Unmarshal(arguments, &report); err != nil {
			return nil, false, fmt.Errorf("malformed %s arguments: %w", name, err)
		}
		return report, true, nil
	case toolReportPrice:
		var report PriceReport
		if err := json.Unmarshal(arguments, &report); err != nil {
			return nil, false, fmt.Errorf("malformed %s arguments: %w", name, err)
		}
		return report, true, nil
	case toolReportDeliveryTerms:
		var report DeliveryTermsReport
		if err := json.Unmarshal(arguments, &report); err != nil {
			return nil, false, fmt.Errorf("malformed %s arguments: %w", name, err)
		}
		return report, true, nil
	default:
		return nil, false, nil
	}
}
