package ai

// Classification is the classifier's verdict on a raw ticket query.
type Classification struct {
	Category   string  `json:"category"` // "order" or "reminder"
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	// RemindAt is set only for reminder tickets (RFC 3339).
	RemindAt string `json:"remind_at,omitempty"`
}

// Classifier categories.
const (
	CategoryOrder    = "order"
	CategoryReminder = "reminder"
)

// QueryAnalysis breaks a query into search strategy inputs.
type QueryAnalysis struct {
	SpecificVendor string   `json:"specific_vendor,omitempty"`
	SearchQueries  []string `json:"search_queries"`
	Category       string   `json:"category"`
}

// TranscriptAnalysis is the structured outcome of one vendor call.
type TranscriptAnalysis struct {
	Available        *bool    `json:"available"`
	MatchedItem      string   `json:"matched_item,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	DeliveryTerms    string   `json:"delivery_terms,omitempty"`
	MatchType        string   `json:"match_type"`
	SpecsMatchScore  float64  `json:"specs_match_score"`
	DataQualityScore float64  `json:"data_quality_score"`
	CallConnected    bool     `json:"call_connected"`
	Notes            string   `json:"notes,omitempty"`
}

// RerankResult is the model's suggested vendor ordering, by place id.
type RerankResult struct {
	OrderedPlaceIDs []string `json:"ordered_place_ids"`
}

// WebDealResult is one best-effort online offer found for a product.
type WebDealResult struct {
	Title  string   `json:"title"`
	Seller string   `json:"seller"`
	Price  *float64 `json:"price,omitempty"`
	URL    string   `json:"url,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// OptionsSummary is a user-facing message describing the compiled options.
type OptionsSummary struct {
	Message string `json:"message"`
}
