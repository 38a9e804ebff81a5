package ai

import (
	"context"
	"encoding/json"

	"voicecommerce_backend/internal/tickets/domain"
)

// ResearchProduct extracts the structured product the user is asking for.
func (s *Service) ResearchProduct(ctx context.Context, query string, analysis *QueryAnalysis) (*domain.ResearchedProduct, error) {
	data := map[string]string{"Query": query}
	if analysis != nil {
		encoded, err := json.Marshal(analysis)
		if err == nil {
			data["Analysis"] = string(encoded)
		}
	}

	var out domain.ResearchedProduct
	if err := s.generateJSON(ctx, "product_researcher", data, &out); err != nil {
		return nil, err
	}
	if out.RequiredSpecs == nil {
		out.RequiredSpecs = map[string]string{}
	}
	// The model tends to over-produce alternatives; only the first few are
	// worth mentioning on a call.
	out.Alternatives = capAlternatives(out.Alternatives, s.maxAlternatives)
	return &out, nil
}

func capAlternatives(alternatives []string, max int) []string {
	if max <= 0 || len(alternatives) <= max {
		return alternatives
	}
	return alternatives[:max]
}
