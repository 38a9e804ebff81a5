package ai

import (
	"context"
	"time"
)

// Classify decides whether a raw query is an order or a reminder request.
func (s *Service) Classify(ctx context.Context, query string) (*Classification, error) {
	var out Classification
	err := s.generateJSON(ctx, "classifier", map[string]string{
		"Query": query,
		"Now":   time.Now().Format(time.RFC3339),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Category != CategoryReminder {
		out.Category = CategoryOrder
	}
	return &out, nil
}

// AnalyzeQuery extracts the search strategy from a shopping request.
func (s *Service) AnalyzeQuery(ctx context.Context, query, location string) (*QueryAnalysis, error) {
	var out QueryAnalysis
	err := s.generateJSON(ctx, "query_analyzer", map[string]string{
		"Query":    query,
		"Location": location,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
