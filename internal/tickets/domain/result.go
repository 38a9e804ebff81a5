package domain

// Result statuses produced by the result compiler.
const (
	ResultFound          = "found"
	ResultNoAvailability = "no_availability"
)

// Match types reported by transcript analysis.
const (
	MatchExact       = "exact"
	MatchClose       = "close"
	MatchAlternative = "alternative"
	MatchNone        = "no_match"
	MatchNoData      = "no_data"
)

// Option is one ranked purchasable option compiled from an analyzed vendor call.
type Option struct {
	VendorCallID    string   `json:"vendor_call_id"`
	VendorName      string   `json:"vendor_name"`
	VendorPhone     string   `json:"vendor_phone"`
	VendorAddress   string   `json:"vendor_address"`
	MatchedItem     string   `json:"matched_item,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	DeliveryTerms   string   `json:"delivery_terms,omitempty"`
	MatchType       string   `json:"match_type"`
	SpecsMatchScore float64  `json:"specs_match_score"`
	DataQuality     float64  `json:"data_quality_score"`
	Composite       float64  `json:"composite_score"`
}

// ContactedVendor records a vendor that was called but had nothing to offer.
type ContactedVendor struct {
	VendorName string `json:"vendor_name"`
	Phone      string `json:"phone"`
	Outcome    string `json:"outcome"`
}

// WebDeal is a best-effort online alternative offer.
type WebDeal struct {
	Title  string   `json:"title"`
	Seller string   `json:"seller"`
	Price  *float64 `json:"price,omitempty"`
	URL    string   `json:"url,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// CompiledResult is the final outcome of the calling phase, persisted on the
// ticket and later consulted by the delivery orchestrator to resolve a
// confirmed option.
type CompiledResult struct {
	Status           string            `json:"status"`
	Message          string            `json:"message,omitempty"`
	Recommendation   *Option           `json:"recommendation,omitempty"`
	Options          []Option          `json:"options,omitempty"`
	ContactedVendors []ContactedVendor `json:"contacted_vendors,omitempty"`
	WebDeals         []WebDeal         `json:"web_deals,omitempty"`
}

// MatchWeight maps a match type onto its ranking weight.
func MatchWeight(matchType string) float64 {
	switch matchType {
	case MatchExact:
		return 4
	case MatchClose:
		return 3
	case MatchAlternative:
		return 2
	default:
		return 0
	}
}

// CompositeScore combines match quality, spec fit, and data quality.
func CompositeScore(matchType string, specsMatch, dataQuality float64) float64 {
	return MatchWeight(matchType)*3 + specsMatch*2 + dataQuality
}
