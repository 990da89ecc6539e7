package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gammazero/workerpool"

	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/geocode"
	"rentmyparking/internal/metrics"
	"rentmyparking/internal/utils"
)

const noResultsMessage = "No parking spots match your criteria."

type SearchService struct {
	Accounts AccountStore
	Geocoder geocode.Geocoder
	Workers  int
	SameCity CityMatcher
}

func NewSearchService(accounts AccountStore, geocoder geocode.Geocoder, workers int, cityMatch string) *SearchService {
	if workers < 1 {
		workers = 1
	}
	return &SearchService{
		Accounts: accounts,
		Geocoder: geocoder,
		Workers:  workers,
		SameCity: CityMatcherFor(cityMatch),
	}
}

// Search geocodes the city, filters every listing against the criteria and
// places each match on the map. A listing whose address cannot be geocoded
// is dropped.
func (s *SearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	if strings.TrimSpace(req.City) == "" {
		return nil, fmt.Errorf("city is required: %w", apperrors.ErrInvalidInput)
	}
	size, ok := utils.ParseVehicleSize(req.Size)
	if !ok {
		return nil, fmt.Errorf("unknown size %q: %w", req.Size, apperrors.ErrInvalidInput)
	}

	center, err := s.Geocoder.Geocode(ctx, req.City)
	if err != nil {
		metrics.GeocodeFailures.WithLabelValues("city").Inc()
		metrics.Searches.WithLabelValues("geocode_failed").Inc()
		if !errors.Is(err, apperrors.ErrGeocodeFailed) {
			err = fmt.Errorf("%v: %w", err, apperrors.ErrGeocodeFailed)
		}
		return nil, fmt.Errorf("search %q: %w", req.City, err)
	}

	accounts, err := s.Accounts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not scan listings: %w", err)
	}

	criteria := Criteria{City: req.City, Size: size, RequireCharge: req.ElectricCharge}
	var candidates []int
	for i := range accounts {
		if MatchListing(accounts[i], criteria, s.SameCity) {
			candidates = append(candidates, i)
		}
	}

	// Slots are indexed by candidate so results keep scan order.
	placed := make([]*entities.SearchResult, len(candidates))
	wp := workerpool.New(s.Workers)
	for slot, idx := range candidates {
		slot, a := slot, accounts[idx]
		wp.Submit(func() {
			address := a.FullAddress()
			coord, err := s.Geocoder.Geocode(ctx, address)
			if err != nil {
				metrics.GeocodeFailures.WithLabelValues("address").Inc()
				slog.Warn("dropping listing with ungeocodable address", "listing", a.ID, "address", address, "error", err)
				return
			}
			placed[slot] = &entities.SearchResult{
				ID:             a.ID,
				Address:        address,
				Coordinate:     coord,
				Size:           string(a.Size),
				ElectricCharge: a.HasCharge(),
				Available:      a.Available,
			}
		})
	}
	wp.StopWait()

	resp := &entities.SearchResponse{
		Region:          entities.RegionAround(center),
		CurrentLocation: req.CurrentLocation,
		Results:         make([]entities.SearchResult, 0, len(placed)),
	}
	for _, r := range placed {
		if r != nil {
			resp.Results = append(resp.Results, *r)
		}
	}

	if len(resp.Results) == 0 {
		resp.Message = noResultsMessage
		metrics.Searches.WithLabelValues("empty").Inc()
	} else {
		metrics.Searches.WithLabelValues("ok").Inc()
	}
	slog.Debug("search finished", "city", req.City, "size", size, "candidates", len(candidates), "results", len(resp.Results))
	return resp, nil
}
