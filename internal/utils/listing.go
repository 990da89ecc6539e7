package utils

import (
	"strings"

	"rentmyparking/internal/db"
)

// ParseVehicleSize maps a search filter to a size. Blank means car.
func ParseVehicleSize(s string) (db.VehicleSize, bool) {
	if strings.TrimSpace(s) == "" {
		return db.SizeCar, true
	}
	size := db.VehicleSize(s)
	return size, size.Valid()
}

// NormalizeCity trims and lower-cases a city name for loose comparison.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// ChargeString is the stored spelling of an electric-charge flag.
func ChargeString(hasCharge bool) string {
	if hasCharge {
		return db.ChargeTrue
	}
	return "false"
}
