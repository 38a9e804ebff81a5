package delivery

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusCallback is a parsed provider status callback.
type StatusCallback struct {
	ClientOrderID string
	OrderID       string
	State         string
	RiderName     string
	RiderPhone    string
	TrackingURL   string
	CancelledBy   string
}

type callbackEnvelope struct {
	ClientOrderID string `json:"client_order_id"`
	OrderID       string `json:"order_id"`
	State         string `json:"state"`
	Rider         *struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"rider"`
	TrackingURL  string `json:"tracking_url"`
	Cancellation *struct {
		By string `json:"cancelled_by"`
	} `json:"cancellation"`
}

// ParseStatusCallback decodes a provider callback body. A callback must carry
// a state and at least one order identifier.
func ParseStatusCallback(body io.Reader) (StatusCallback, error) {
	var env callbackEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return StatusCallback{}, fmt.Errorf("failed to decode status callback: %w", err)
	}
	if env.State == "" {
		return StatusCallback{}, fmt.Errorf("status callback missing state")
	}
	if env.ClientOrderID == "" && env.OrderID == "" {
		return StatusCallback{}, fmt.Errorf("status callback missing order identifier")
	}

	cb := StatusCallback{
		ClientOrderID: env.ClientOrderID,
		OrderID:       env.OrderID,
		State:         env.State,
		TrackingURL:   env.TrackingURL,
	}
	if env.Rider != nil {
		cb.RiderName = env.Rider.Name
		cb.RiderPhone = env.Rider.Phone
	}
	if env.Cancellation != nil {
		cb.CancelledBy = env.Cancellation.By
	}
	return cb, nil
}
