package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/temp14-service/internal/models"
)

const geocodingProvider = "geocoding"

// Geocoder resolves a free-text place name to coordinates. found is false when
// the provider has no usable match; that outcome is not an error.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (coord models.Coordinate, found bool, err error)
}

// NominatimClient calls the OpenStreetMap Nominatim search API.
type NominatimClient struct {
	apiURL string
	getter *getter
}

// NewNominatimClient returns a client for apiURL. Nominatim's usage policy requires
// an identifying User-Agent.
func NewNominatimClient(apiURL, userAgent string, timeout time.Duration) (*NominatimClient, error) {
	if _, err := url.Parse(apiURL); err != nil || apiURL == "" {
		return nil, fmt.Errorf("invalid geocoding API URL %q", apiURL)
	}
	if userAgent == "" {
		return nil, fmt.Errorf("geocoding client: user agent is required")
	}
	return &NominatimClient{
		apiURL: apiURL,
		getter: &getter{
			provider:  geocodingProvider,
			userAgent: userAgent,
			client:    &http.Client{Timeout: timeout},
		},
	}, nil
}

// Geocode returns the coordinates of the best match for place.
func (c *NominatimClient) Geocode(ctx context.Context, place string) (models.Coordinate, bool, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return models.Coordinate{}, false, fmt.Errorf("invalid API URL: %w", err)
	}
	params := baseURL.Query()
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("limit", "1")
	baseURL.RawQuery = params.Encode()

	var results []models.GeocodeResult
	if err := c.getter.getJSON(ctx, baseURL.String(), &results); err != nil {
		return models.Coordinate{}, false, err
	}
	coord, ok := firstCoordinate(results)
	return coord, ok, nil
}

// firstCoordinate converts the first result's string lat/lon. Missing or
// unparseable values count as no match.
func firstCoordinate(results []models.GeocodeResult) (models.Coordinate, bool) {
	if len(results) == 0 {
		return models.Coordinate{}, false
	}
	first := results[0]
	if first.Lat == nil || first.Lon == nil {
		return models.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(*first.Lat, 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(*first.Lon, 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lon: lon}, true
}
