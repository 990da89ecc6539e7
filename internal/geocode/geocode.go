package geocode

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
)

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (entities.Coordinate, error)
}

type GoogleGeocoder struct {
	client  *maps.Client
	timeout time.Duration
}

// NewGoogleGeocoder builds a client for the Google Geocoding API. Extra
// options (e.g. maps.WithBaseURL in tests) are appended after the key.
func NewGoogleGeocoder(apiKey string, timeout time.Duration, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &GoogleGeocoder{client: client, timeout: timeout}, nil
}

// Geocode returns the first match. No match is an error.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (entities.Coordinate, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return entities.Coordinate{}, fmt.Errorf("geocode %q: %v: %w", address, err, apperrors.ErrGeocodeFailed)
	}
	if len(results) == 0 {
		return entities.Coordinate{}, fmt.Errorf("geocode %q: no results: %w", address, apperrors.ErrGeocodeFailed)
	}

	loc := results[0].Geometry.Location
	return entities.Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
