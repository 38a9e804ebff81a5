// Package vendors provides vendor discovery: multi-query search, dedup,
// ranking, and persistence of the candidate list for a ticket.
package vendors

import (
	"github.com/google/uuid"
)

// Vendor is one discovered candidate business for a ticket. Rows are unique
// per (ticket, place id); rank is 1-based and rewritten by re-ranking.
type Vendor struct {
	ID          uuid.UUID
	TicketID    string
	PlaceID     string
	Name        string
	Address     string
	Phone       string
	Rating      float64
	RatingCount int
	Lat         float64
	Lng         float64
	OpenNow     *bool
	Rank        int
}
