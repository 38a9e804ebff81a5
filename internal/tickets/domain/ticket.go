package domain

import "time"

// Ticket is one end-to-end fulfillment request and its lifecycle state.
type Ticket struct {
	ID           string
	Status       Status
	Query        string
	Location     string
	ContactPhone string
	ContactName  string
	Category     string
	ErrorMessage *string
	Result       *CompiledResult
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ResearchedProduct describes what the user is asking for, extracted once per
// ticket and immutable afterwards.
type ResearchedProduct struct {
	Name                string            `json:"name"`
	Category            string            `json:"category"`
	RequiredSpecs       map[string]string `json:"required_specs"`
	Alternatives        []string          `json:"alternatives"`
	AvgOnlinePrice      float64           `json:"avg_online_price"`
	SearchQueryTemplate string            `json:"search_query_template"`
}
