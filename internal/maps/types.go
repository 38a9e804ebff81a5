package maps

// Place is one vendor-search result, normalized from the places provider.
type Place struct {
	PlaceID     string
	Name        string
	Address     string
	Phone       string
	Rating      float64
	RatingCount int
	Lat         float64
	Lng         float64
	OpenNow     *bool
}

// GeoPoint is a geocoded location.
type GeoPoint struct {
	Lat              float64
	Lng              float64
	PostalCode       string
	City             string
	FormattedAddress string
}

type placesSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

type placeDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		PlaceID                  string  `json:"place_id"`
		Name                     string  `json:"name"`
		FormattedAddress         string  `json:"formatted_address"`
		FormattedPhoneNumber     string  `json:"formatted_phone_number"`
		InternationalPhoneNumber string  `json:"international_phone_number"`
		Rating                   float64 `json:"rating"`
		UserRatingsTotal         int     `json:"user_ratings_total"`
		Geometry                 struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"result"`
	ErrorMessage string `json:"error_message"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}
