package vendors

import (
	"context"
	"reflect"
	"testing"

	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/platform/logger"
)

// fakeSearcher serves canned search pages keyed by query and canned detail
// records keyed by place id. It records issued queries for assertions.
type fakeSearcher struct {
	pages         map[string][]maps.Place
	details       map[string]maps.Place
	issuedQueries []string
}

func (f *fakeSearcher) TextSearch(_ context.Context, query string, _ *maps.GeoPoint) ([]maps.Place, error) {
	f.issuedQueries = append(f.issuedQueries, query)
	return f.pages[query], nil
}

func (f *fakeSearcher) PlaceDetails(_ context.Context, placeID string) (*maps.Place, error) {
	place, ok := f.details[placeID]
	if !ok {
		return nil, context.Canceled
	}
	return &place, nil
}

func boolPtr(b bool) *bool { return &b }

func place(id, name, phone string, rating float64, count int, open *bool) maps.Place {
	return maps.Place{PlaceID: id, Name: name, Phone: phone, Rating: rating, RatingCount: count, OpenNow: open}
}

func newTestDiscovery(searcher *fakeSearcher) *Discovery {
	return NewDiscovery(searcher, logger.New("development"))
}

func TestDiscoverDedupKeepsHighestPriority(t *testing.T) {
	shared := place("p1", "Shared Shop", "", 4.0, 10, nil)
	searcher := &fakeSearcher{
		pages: map[string][]maps.Place{
			"query a": {shared, place("p2", "A Only", "", 4.5, 50, nil)},
			"query b": {shared, place("p3", "B Only", "", 5.0, 5, nil)},
		},
		details: map[string]maps.Place{
			"p1": place("p1", "Shared Shop", "+91 80 1111 1111", 4.0, 10, nil),
			"p2": place("p2", "A Only", "+91 80 2222 2222", 4.5, 50, nil),
			"p3": place("p3", "B Only", "+91 80 3333 3333", 5.0, 5, nil),
		},
	}

	vendors, err := newTestDiscovery(searcher).Discover(context.Background(), DiscoveryInput{
		TicketID:   "TKT-001",
		Queries:    []string{"query a", "query b"},
		MaxVendors: 5,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(vendors) != 3 {
		t.Fatalf("got %d vendors, want 3 (dedup must collapse the shared place)", len(vendors))
	}

	seen := map[string]int{}
	for _, v := range vendors {
		seen[v.PlaceID]++
	}
	if seen["p1"] != 1 {
		t.Errorf("place p1 appears %d times, want exactly 1", seen["p1"])
	}
}

func TestDiscoverDropsClosedAndPhoneless(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string][]maps.Place{
			"q": {
				place("open", "Open Shop", "", 4.0, 10, nil),
				place("closed", "Closed Shop", "", 4.9, 100, nil),
				place("nophone", "Silent Shop", "", 4.5, 40, nil),
			},
		},
		details: map[string]maps.Place{
			"open":    place("open", "Open Shop", "+91 80 1111 1111", 4.0, 10, boolPtr(true)),
			"closed":  place("closed", "Closed Shop", "+91 80 2222 2222", 4.9, 100, boolPtr(false)),
			"nophone": place("nophone", "Silent Shop", "", 4.5, 40, boolPtr(true)),
		},
	}

	vendors, err := newTestDiscovery(searcher).Discover(context.Background(), DiscoveryInput{
		TicketID:   "TKT-001",
		Queries:    []string{"q"},
		MaxVendors: 5,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(vendors) != 1 || vendors[0].PlaceID != "open" {
		t.Fatalf("got %v, want only the open, phone-bearing shop", vendors)
	}
	if vendors[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", vendors[0].Rank)
	}
}

func TestDiscoverTieBreakOrder(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string][]maps.Place{
			"first":  {place("a", "A", "", 4.0, 10, nil)},
			"second": {place("b", "B", "", 5.0, 500, nil), place("c", "C", "", 5.0, 100, nil), place("d", "D", "", 4.2, 10, nil)},
		},
		details: map[string]maps.Place{
			"a": place("a", "A", "+91 80 0000 0001", 4.0, 10, nil),
			"b": place("b", "B", "+91 80 0000 0002", 5.0, 500, nil),
			"c": place("c", "C", "+91 80 0000 0003", 5.0, 100, nil),
			"d": place("d", "D", "+91 80 0000 0004", 4.2, 10, nil),
		},
	}

	vendors, err := newTestDiscovery(searcher).Discover(context.Background(), DiscoveryInput{
		TicketID:   "TKT-001",
		Queries:    []string{"first", "second"},
		MaxVendors: 5,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// Query priority dominates: "a" from the first query outranks the
	// higher-rated results of the second. Within the second query, rating
	// desc then rating count desc.
	want := []string{"a", "b", "c", "d"}
	var got []string
	for _, v := range vendors {
		got = append(got, v.PlaceID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	for i, v := range vendors {
		if v.Rank != i+1 {
			t.Errorf("vendor %s rank = %d, want %d", v.PlaceID, v.Rank, i+1)
		}
	}
}

func TestDiscoverIsDeterministic(t *testing.T) {
	build := func() *fakeSearcher {
		return &fakeSearcher{
			pages: map[string][]maps.Place{
				"q": {place("x", "X", "", 4.0, 10, nil), place("y", "Y", "", 4.0, 10, nil)},
			},
			details: map[string]maps.Place{
				"x": place("x", "X", "+91 80 0000 0005", 4.0, 10, nil),
				"y": place("y", "Y", "+91 80 0000 0006", 4.0, 10, nil),
			},
		}
	}

	in := DiscoveryInput{TicketID: "TKT-001", Queries: []string{"q"}, MaxVendors: 5}

	first, err := newTestDiscovery(build()).Discover(context.Background(), in)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	second, err := newTestDiscovery(build()).Discover(context.Background(), in)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PlaceID != second[i].PlaceID || first[i].Rank != second[i].Rank {
			t.Errorf("run mismatch at %d: %s/%d vs %s/%d",
				i, first[i].PlaceID, first[i].Rank, second[i].PlaceID, second[i].Rank)
		}
	}
}

func TestDiscoverSpecificVendorQueriesAndDistanceSort(t *testing.T) {
	near := maps.Place{PlaceID: "near", Name: "Sharma Stores", Phone: "+91 80 0000 0007", Rating: 3.0, RatingCount: 5, Lat: 12.97, Lng: 77.64}
	far := maps.Place{PlaceID: "far", Name: "Sharma Stores HSR", Phone: "+91 80 0000 0008", Rating: 4.9, RatingCount: 900, Lat: 12.91, Lng: 77.65}

	searcher := &fakeSearcher{
		pages: map[string][]maps.Place{
			"Sharma Stores":                         {far, near},
			"Sharma Stores, Indiranagar, Bengaluru": {near},
		},
		details: map[string]maps.Place{"near": near, "far": far},
	}

	vendors, err := newTestDiscovery(searcher).Discover(context.Background(), DiscoveryInput{
		TicketID:       "TKT-001",
		Queries:        []string{"general store near me"},
		Location:       "Flat 4B, 12 Main Rd, Indiranagar, Bengaluru",
		SpecificVendor: "Sharma Stores",
		UserPoint:      &maps.GeoPoint{Lat: 12.9716, Lng: 77.6412},
		MaxVendors:     5,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// Synthetic queries must run first: bare name, then name + area.
	if len(searcher.issuedQueries) < 2 ||
		searcher.issuedQueries[0] != "Sharma Stores" ||
		searcher.issuedQueries[1] != "Sharma Stores, Indiranagar, Bengaluru" {
		t.Fatalf("issued queries = %v, want synthetic vendor queries first", searcher.issuedQueries)
	}

	// Distance sort overrides rating: the nearby branch wins.
	if len(vendors) != 2 || vendors[0].PlaceID != "near" {
		t.Fatalf("vendors = %+v, want the nearby branch ranked first", vendors)
	}
}

func TestTrimToArea(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"Flat 4B, 12 Main Rd, Indiranagar, Bengaluru", "Indiranagar, Bengaluru"},
		{"Indiranagar, Bengaluru", "Indiranagar, Bengaluru"},
		{"Bengaluru", "Bengaluru"},
		{"Floor 2, Block C, HSR Layout, Bengaluru", "HSR Layout, Bengaluru"},
		{"", ""},
		{"Flat 1, Floor 3", ""},
	}
	for _, tc := range tests {
		if got := trimToArea(tc.location); got != tc.want {
			t.Errorf("trimToArea(%q) = %q, want %q", tc.location, got, tc.want)
		}
	}
}

func TestHaversineKm(t *testing.T) {
	// Bengaluru to Chennai is roughly 290 km as the crow flies.
	d := haversineKm(12.9716, 77.5946, 13.0827, 80.2707)
	if d < 270 || d > 300 {
		t.Errorf("haversineKm = %v, want roughly 290", d)
	}
	if z := haversineKm(12.9716, 77.5946, 12.9716, 77.5946); z != 0 {
		t.Errorf("zero distance = %v", z)
	}
}
