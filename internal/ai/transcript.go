package ai

import (
	"context"
	"encoding/json"

	"voicecommerce_backend/internal/tickets/domain"
)

// AnalyzeTranscript turns a call transcript plus any mid-call tool reports
// into the structured analysis persisted on the vendor call.
func (s *Service) AnalyzeTranscript(ctx context.Context, transcript string, toolReports interface{}, product *domain.ResearchedProduct) (*TranscriptAnalysis, error) {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	reportsJSON, err := json.Marshal(toolReports)
	if err != nil {
		return nil, err
	}

	var out TranscriptAnalysis
	err = s.generateJSON(ctx, "transcript_analyzer", map[string]string{
		"ProductJSON":     string(productJSON),
		"ToolReportsJSON": string(reportsJSON),
		"Transcript":      transcript,
	}, &out)
	if err != nil {
		return nil, err
	}

	switch out.MatchType {
	case domain.MatchExact, domain.MatchClose, domain.MatchAlternative, domain.MatchNone:
	default:
		out.MatchType = domain.MatchNone
	}
	return &out, nil
}
