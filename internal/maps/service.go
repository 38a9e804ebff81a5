// Package maps provides the vendor-search and geocoding collaborators,
// backed by the Google Maps Places and Geocoding web services.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	placesSearchURL  = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	placeDetailsURL  = "https://maps.googleapis.com/maps/api/place/details/json"
	geocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	searchBiasRadius = "15000"

	detailsFields = "place_id,name,formatted_address,formatted_phone_number,international_phone_number,rating,user_ratings_total,geometry,opening_hours"
)

// Service talks to the places and geocoding endpoints. Requests are rate
// limited globally so parallel detail fetches stay within provider quota.
type Service struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewService creates a maps service.
func NewService(cfg config.MapsConfig, log *logger.Logger) *Service {
	return &Service{
		apiKey:  cfg.GetGoogleMapsAPIKey(),
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		log:     log,
	}
}

// TextSearch runs a places text search, optionally biased toward a point.
func (s *Service) TextSearch(ctx context.Context, query string, bias *GeoPoint) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", s.apiKey)
	if bias != nil {
		params.Set("location", fmt.Sprintf("%f,%f", bias.Lat, bias.Lng))
		params.Set("radius", searchBiasRadius)
	}

	var payload placesSearchResponse
	if err := s.get(ctx, "places_text_search", placesSearchURL, params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, apperr.Unavailable(fmt.Sprintf("places search failed: %s %s", payload.Status, payload.ErrorMessage))
	}

	places := make([]Place, 0, len(payload.Results))
	for _, result := range payload.Results {
		place := Place{
			PlaceID:     result.PlaceID,
			Name:        result.Name,
			Address:     result.FormattedAddress,
			Rating:      result.Rating,
			RatingCount: result.UserRatingsTotal,
			Lat:         result.Geometry.Location.Lat,
			Lng:         result.Geometry.Location.Lng,
		}
		if result.OpeningHours != nil {
			place.OpenNow = result.OpeningHours.OpenNow
		}
		places = append(places, place)
	}
	return places, nil
}

// PlaceDetails fetches the detail record for one place id. The text-search
// payload omits phone numbers, so discovery always needs this second hop.
func (s *Service) PlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)
	params.Set("key", s.apiKey)

	var payload placeDetailsResponse
	if err := s.get(ctx, "place_details", placeDetailsURL, params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, apperr.Unavailable(fmt.Sprintf("place details failed: %s %s", payload.Status, payload.ErrorMessage))
	}

	phone := payload.Result.InternationalPhoneNumber
	if phone == "" {
		phone = payload.Result.FormattedPhoneNumber
	}

	place := &Place{
		PlaceID:     placeID,
		Name:        payload.Result.Name,
		Address:     payload.Result.FormattedAddress,
		Phone:       phone,
		Rating:      payload.Result.Rating,
		RatingCount: payload.Result.UserRatingsTotal,
		Lat:         payload.Result.Geometry.Location.Lat,
		Lng:         payload.Result.Geometry.Location.Lng,
	}
	if payload.Result.OpeningHours != nil {
		place.OpenNow = payload.Result.OpeningHours.OpenNow
	}
	return place, nil
}

// Forward geocodes a free-text address.
func (s *Service) Forward(ctx context.Context, address string) (*GeoPoint, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", s.apiKey)
	return s.geocode(ctx, "geocode_forward", params)
}

// Reverse geocodes coordinates back to an address.
func (s *Service) Reverse(ctx context.Context, lat, lng float64) (*GeoPoint, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", s.apiKey)
	return s.geocode(ctx, "geocode_reverse", params)
}

func (s *Service) geocode(ctx context.Context, operation string, params url.Values) (*GeoPoint, error) {
	var payload geocodeResponse
	if err := s.get(ctx, operation, geocodeURL, params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" || len(payload.Results) == 0 {
		return nil, apperr.Unavailable(fmt.Sprintf("geocoding failed: %s %s", payload.Status, payload.ErrorMessage))
	}

	top := payload.Results[0]
	point := &GeoPoint{
		Lat:              top.Geometry.Location.Lat,
		Lng:              top.Geometry.Location.Lng,
		FormattedAddress: top.FormattedAddress,
	}
	for _, component := range top.AddressComponents {
		for _, kind := range component.Types {
			switch kind {
			case "postal_code":
				point.PostalCode = component.LongName
			case "locality":
				point.City = component.LongName
			}
		}
	}
	return point, nil
}

func (s *Service) get(ctx context.Context, operation, endpoint string, params url.Values, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.log.ExternalCall("google_maps", operation, time.Since(start).Milliseconds(), err)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "maps request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return apperr.Unavailable(fmt.Sprintf("maps upstream error: %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
