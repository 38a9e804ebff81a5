package ai

import (
	"context"
	"encoding/json"

	"voicecommerce_backend/internal/tickets/domain"
)

// SummarizeOptions writes the user-facing message for a compiled result.
// Best-effort: a failure yields an empty message, never an error surfaced
// to the caller.
func (s *Service) SummarizeOptions(ctx context.Context, result *domain.CompiledResult) string {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return ""
	}

	var out OptionsSummary
	err = s.generateJSON(ctx, "options_summary", map[string]string{
		"ResultJSON": string(resultJSON),
	}, &out)
	if err != nil {
		s.log.Warn("options summary failed", "error", err)
		return ""
	}
	return out.Message
}
