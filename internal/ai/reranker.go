package ai

import (
	"context"
	"encoding/json"

	"voicecommerce_backend/internal/tickets/domain"
)

// RerankCandidate is the minimal vendor view handed to the re-ranker.
type RerankCandidate struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

// Rerank asks the model for a better vendor ordering. Best-effort: any
// failure, or a reply that drops/invents place ids, falls back to the
// original order.
func (s *Service) Rerank(ctx context.Context, product *domain.ResearchedProduct, candidates []RerankCandidate) []string {
	original := make([]string, len(candidates))
	for i, c := range candidates {
		original[i] = c.PlaceID
	}

	productJSON, err := json.Marshal(product)
	if err != nil {
		return original
	}
	vendorsJSON, err := json.Marshal(candidates)
	if err != nil {
		return original
	}

	var out RerankResult
	err = s.generateJSON(ctx, "reranker", map[string]string{
		"ProductJSON": string(productJSON),
		"VendorsJSON": string(vendorsJSON),
	}, &out)
	if err != nil {
		s.log.Warn("reranker failed, keeping original order", "error", err)
		return original
	}

	if !samePlaceIDSet(original, out.OrderedPlaceIDs) {
		s.log.Warn("reranker reply did not cover the candidate set, keeping original order")
		return original
	}
	return out.OrderedPlaceIDs
}

func samePlaceIDSet(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	seen := make(map[string]bool, len(want))
	for _, id := range want {
		seen[id] = true
	}
	for _, id := range got {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}
