// Package ai provides the model collaborators: classifier, query analyzer,
// product researcher, transcript analyzer, re-ranker, web-deals search, and
// the options-summary writer. Every collaborator is an "ask the model, get
// structured JSON" call against the Gemini API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"google.golang.org/genai"
)

// Service holds the shared model client and prompt registry.
type Service struct {
	client          *genai.Client
	model           string
	prompts         *promptRegistry
	maxAlternatives int
	log             *logger.Logger
}

// NewService creates the model collaborator service.
func NewService(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}

	return &Service{
		client:          client,
		model:           cfg.GetGeminiModel(),
		prompts:         prompts,
		maxAlternatives: cfg.GetMaxAlternatives(),
		log:             log,
	}, nil
}

// generateJSON renders the named prompt, calls the model, and decodes the
// JSON reply into out.
func (s *Service) generateJSON(ctx context.Context, promptName string, data interface{}, out interface{}) error {
	system, user, err := s.prompts.Render(promptName, data)
	if err != nil {
		return err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(user), cfg)
	s.log.ExternalCall("gemini", promptName, time.Since(start).Milliseconds(), err)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, fmt.Sprintf("%s model call failed", promptName), err)
	}

	text := stripCodeFences(resp.Text())
	if text == "" {
		return apperr.Unavailable(fmt.Sprintf("%s model call returned no text", promptName))
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, fmt.Sprintf("%s model reply was not valid JSON", promptName), err)
	}
	return nil
}

// stripCodeFences removes a surrounding markdown code fence if the model
// wrapped its JSON despite the mime-type hint.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
