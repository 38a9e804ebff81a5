package vendors

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PlaceSearcher is the slice of the maps service discovery depends on.
type PlaceSearcher interface {
	TextSearch(ctx context.Context, query string, bias *maps.GeoPoint) ([]maps.Place, error)
	PlaceDetails(ctx context.Context, placeID string) (*maps.Place, error)
}

// DiscoveryInput carries everything discovery needs for one ticket.
type DiscoveryInput struct {
	TicketID       string
	Queries        []string
	Location       string
	SpecificVendor string
	UserPoint      *maps.GeoPoint
	MaxVendors     int
}

// Discovery merges the results of several search-query variants into one
// deduplicated, priority-ordered vendor list.
type Discovery struct {
	searcher PlaceSearcher
	log      *logger.Logger
}

// NewDiscovery creates the discovery service.
func NewDiscovery(searcher PlaceSearcher, log *logger.Logger) *Discovery {
	return &Discovery{searcher: searcher, log: log}
}

// candidate tracks which query priority first produced a place.
type candidate struct {
	place    maps.Place
	priority int
}

// Discover runs the ranking-and-dedup algorithm and returns at most
// MaxVendors vendors with 1-based ranks assigned. The caller persists them.
func (d *Discovery) Discover(ctx context.Context, in DiscoveryInput) ([]Vendor, error) {
	queries := in.Queries
	if in.SpecificVendor != "" {
		queries = append(specificVendorQueries(in.SpecificVendor, in.Location), queries...)
	}

	merged := d.searchAll(ctx, queries, in.UserPoint)
	if len(merged) == 0 {
		return nil, nil
	}

	limit := 2 * in.MaxVendors
	if limit > len(merged) {
		limit = len(merged)
	}
	detailed := d.fetchDetails(ctx, merged[:limit])

	// Phone is mandatory: a vendor we cannot call is useless. Places the
	// provider explicitly flags as closed right now are dropped too.
	filtered := detailed[:0]
	for _, c := range detailed {
		if strings.TrimSpace(c.place.Phone) == "" {
			continue
		}
		if c.place.OpenNow != nil && !*c.place.OpenNow {
			continue
		}
		filtered = append(filtered, c)
	}

	if in.SpecificVendor != "" && in.UserPoint != nil {
		sortByDistance(filtered, in.UserPoint.Lat, in.UserPoint.Lng)
	} else {
		sortByPriority(filtered)
	}

	if len(filtered) > in.MaxVendors {
		filtered = filtered[:in.MaxVendors]
	}

	vendors := make([]Vendor, 0, len(filtered))
	for i, c := range filtered {
		vendors = append(vendors, Vendor{
			ID:          uuid.New(),
			TicketID:    in.TicketID,
			PlaceID:     c.place.PlaceID,
			Name:        c.place.Name,
			Address:     c.place.Address,
			Phone:       c.place.Phone,
			Rating:      c.place.Rating,
			RatingCount: c.place.RatingCount,
			Lat:         c.place.Lat,
			Lng:         c.place.Lng,
			OpenNow:     c.place.OpenNow,
			Rank:        i + 1,
		})
	}
	return vendors, nil
}

// searchAll executes each query in priority order (index = priority, lower
// is better), sorts each page by rating weight, and merges with keep-first
// dedup by place id. A single failed query degrades, it does not abort.
func (d *Discovery) searchAll(ctx context.Context, queries []string, bias *maps.GeoPoint) []candidate {
	var merged []candidate
	seen := make(map[string]bool)

	for priority, query := range queries {
		places, err := d.searcher.TextSearch(ctx, query, bias)
		if err != nil {
			d.log.Warn("vendor search query failed", "query", query, "error", err)
			continue
		}

		sort.SliceStable(places, func(i, j int) bool {
			return ratingWeight(places[i]) > ratingWeight(places[j])
		})

		for _, place := range places {
			if place.PlaceID == "" || seen[place.PlaceID] {
				continue
			}
			seen[place.PlaceID] = true
			merged = append(merged, candidate{place: place, priority: priority})
		}
	}
	return merged
}

// fetchDetails enriches candidates with their detail record (text search
// never carries phone numbers). Detail calls run concurrently; a failed
// fetch keeps the search-page data, which the phone filter then drops.
func (d *Discovery) fetchDetails(ctx context.Context, candidates []candidate) []candidate {
	out := make([]candidate, len(candidates))
	copy(out, candidates)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(5)

	for i := range out {
		group.Go(func() error {
			details, err := d.searcher.PlaceDetails(groupCtx, out[i].place.PlaceID)
			if err != nil {
				d.log.Warn("place details fetch failed", "place_id", out[i].place.PlaceID, "error", err)
				return nil
			}
			mu.Lock()
			priority := out[i].priority
			out[i] = candidate{place: *details, priority: priority}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func ratingWeight(p maps.Place) float64 {
	return p.Rating * float64(p.RatingCount)
}

func sortByPriority(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.place.Rating != b.place.Rating {
			return a.place.Rating > b.place.Rating
		}
		return a.place.RatingCount > b.place.RatingCount
	})
}

func sortByDistance(candidates []candidate, lat, lng float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return haversineKm(lat, lng, candidates[i].place.Lat, candidates[i].place.Lng) <
			haversineKm(lat, lng, candidates[j].place.Lat, candidates[j].place.Lng)
	})
}

// specificVendorQueries builds the two synthetic highest-priority queries for
// a named vendor: the bare name, and the name scoped to "neighborhood, city"
// extracted from the location text.
func specificVendorQueries(name, location string) []string {
	queries := []string{name}
	if area := trimToArea(location); area != "" {
		queries = append(queries, name+", "+area)
	}
	return queries
}

// unit/floor noise that should not leak into a search query.
var unitTokens = []string{"flat", "floor", "apt", "apartment", "unit", "block", "#", "no.", "room"}

// trimToArea keeps the last two comma-separated segments of a location,
// skipping segments that look like unit or floor designations.
func trimToArea(location string) string {
	segments := strings.Split(location, ",")
	var kept []string
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" || looksLikeUnit(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) > 2 {
		kept = kept[len(kept)-2:]
	}
	return strings.Join(kept, ", ")
}

func looksLikeUnit(segment string) bool {
	lower := strings.ToLower(segment)
	for _, token := range unitTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
