package calls

import (
	"time"

	"github.com/google/uuid"
)

// VendorCall is one voice-inquiry attempt to a specific vendor. A retry
// reuses the row: fresh external call id, incremented retry counter.
type VendorCall struct {
	ID             uuid.UUID
	TicketID       string
	VendorID       uuid.UUID
	ExternalCallID *string
	Status         CallStatus
	RetryCount     int
	Transcript     *string

	// Structured analysis, populated when the call reaches analyzed/failed.
	Available        *bool
	MatchedItem      *string
	Price            *float64
	DeliveryTerms    *string
	MatchType        *string
	SpecsMatchScore  *float64
	DataQualityScore *float64
	Notes            *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CallWithVendor joins a call with the vendor details the compiler and the
// options endpoint need.
type CallWithVendor struct {
	VendorCall
	VendorName    string
	VendorPhone   string
	VendorAddress string
}
