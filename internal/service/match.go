package service

import (
	"rentmyparking/internal/config"
	"rentmyparking/internal/db"
	"rentmyparking/internal/utils"
)

// Criteria are the filters a listing must pass to show up in a search.
type Criteria struct {
	City          string
	Size          db.VehicleSize
	RequireCharge bool
}

// CityMatcher compares a stored city to the searched one.
type CityMatcher func(stored, wanted string) bool

func exactCity(stored, wanted string) bool { return stored == wanted }

func normalizedCity(stored, wanted string) bool {
	return utils.NormalizeCity(stored) == utils.NormalizeCity(wanted)
}

// CityMatcherFor returns the matcher for a CITY_MATCH mode. Anything but
// "normalized" compares exactly.
func CityMatcherFor(mode string) CityMatcher {
	if mode == config.CityMatchNormalized {
		return normalizedCity
	}
	return exactCity
}

// MatchListing reports whether a is in the results for c. The charge flag
// is compared as the stored string.
func MatchListing(a db.Account, c Criteria, sameCity CityMatcher) bool {
	if sameCity == nil {
		sameCity = exactCity
	}
	if !sameCity(a.City, c.City) {
		return false
	}
	if a.Size != c.Size || !a.Available {
		return false
	}
	return !c.RequireCharge || a.ElectricCharge == db.ChargeTrue
}
