package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"
	"voicecommerce_backend/platform/phone"
)

// CallRequest carries everything needed to place one vendor inquiry call.
type CallRequest struct {
	Phone        string
	VendorName   string
	TicketID     string
	VendorCallID string
	Product      *domain.ResearchedProduct
}

// VoiceClient places outbound calls through the voice provider's REST API.
type VoiceClient struct {
	apiKey        string
	baseURL       string
	phoneNumberID string
	webhookURL    string
	client        *http.Client
	log           *logger.Logger
}

// NewVoiceClient creates the call placer.
func NewVoiceClient(cfg config.VoiceConfig, log *logger.Logger) *VoiceClient {
	return &VoiceClient{
		apiKey:        cfg.GetVoiceAPIKey(),
		baseURL:       cfg.GetVoiceBaseURL(),
		phoneNumberID: cfg.GetVoicePhoneNumberID(),
		webhookURL:    cfg.GetPublicBaseURL() + "/api/v1/webhooks/voice",
		client:        &http.Client{Timeout: 15 * time.Second},
		log:           log,
	}
}

type placeCallResponse struct {
	ID string `json:"id"`
}

// PlaceCall starts an outbound inquiry call and returns the provider's call
// id. Completion arrives later through the webhook.
func (v *VoiceClient) PlaceCall(ctx context.Context, req CallRequest) (string, error) {
	specs, _ := json.Marshal(req.Product.RequiredSpecs)
	systemPrompt := fmt.Sprintf(
		"You are calling %s on behalf of a customer. Ask whether they currently stock %s (specs: %s) "+
			"and if so, the price and whether they can deliver. Use your tools to report availability, "+
			"price, and delivery terms as soon as you learn them. Be brief and polite.",
		req.VendorName, req.Product.Name, specs)

	payload := map[string]interface{}{
		"phoneNumberId": v.phoneNumberID,
		"customer": map[string]string{
			"number": phone.NormalizeE164(req.Phone),
		},
		"assistant": map[string]interface{}{
			"firstMessage": fmt.Sprintf("Hello, I am calling to ask about %s. Do you have a moment?", req.Product.Name),
			"model": map[string]interface{}{
				"provider": "google",
				"model":    "gemini-2.0-flash",
				"messages": []map[string]string{
					{"role": "system", "content": systemPrompt},
				},
			},
			"server": map[string]string{"url": v.webhookURL},
		},
		"metadata": map[string]string{
			"ticket_id":      req.TicketID,
			"vendor_call_id": req.VendorCallID,
		},
	}

	return v.startCall(ctx, "place_call", payload)
}

// PlaceReminderCall starts a wake-up/reminder call to the customer.
func (v *VoiceClient) PlaceReminderCall(ctx context.Context, toPhone, name, message string) (string, error) {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	if message == "" {
		message = "This is your scheduled reminder call."
	}

	payload := map[string]interface{}{
		"phoneNumberId": v.phoneNumberID,
		"customer": map[string]string{
			"number": phone.NormalizeE164(toPhone),
		},
		"assistant": map[string]interface{}{
			"firstMessage": fmt.Sprintf("%s, this is your reminder call. %s", greeting, message),
			"model": map[string]interface{}{
				"provider": "google",
				"model":    "gemini-2.0-flash",
				"messages": []map[string]string{
					{"role": "system", "content": "You are a friendly reminder assistant. Deliver the reminder, confirm the customer heard it, and end the call."},
				},
			},
			"server": map[string]string{"url": v.webhookURL},
		},
	}

	return v.startCall(ctx, "place_reminder_call", payload)
}

func (v *VoiceClient) startCall(ctx context.Context, operation string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := v.client.Do(httpReq)
	v.log.ExternalCall("voice", operation, time.Since(start).Milliseconds(), err)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "voice call placement failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apperr.Unavailable(fmt.Sprintf("voice provider returned %d", resp.StatusCode))
	}

	var placed placeCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "voice provider reply was not valid JSON", err)
	}
	if placed.ID == "" {
		return "", apperr.Unavailable("voice provider reply missing call id")
	}
	return placed.ID, nil
}
