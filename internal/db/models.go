package db

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type Role string

const (
	RoleRenter Role = "to rent"
	RoleOwner  Role = "to rent my place"
	RoleBoth   Role = "both"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRenter, RoleOwner, RoleBoth:
		return true
	}
	return false
}

// OffersListing reports whether the account acts as a parking listing.
func (r Role) OffersListing() bool {
	return r == RoleOwner || r == RoleBoth
}

type VehicleSize string

const (
	SizeMotorcycle VehicleSize = "motorcycle"
	SizeCar        VehicleSize = "car"
	SizeTruck      VehicleSize = "truck"
)

func (s VehicleSize) Valid() bool {
	switch s {
	case SizeMotorcycle, SizeCar, SizeTruck:
		return true
	}
	return false
}

type OpenMechanism string

const (
	OpenRemote    OpenMechanism = "remote"
	OpenPhoneCall OpenMechanism = "phoneCall"
	OpenOpen      OpenMechanism = "open"
	OpenSemiOpen  OpenMechanism = "semiOpen"
)

func (m OpenMechanism) Valid() bool {
	switch m {
	case OpenRemote, OpenPhoneCall, OpenOpen, OpenSemiOpen:
		return true
	}
	return false
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is defined.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ChargeTrue is the stored spelling of a listing that offers charging.
// The flag column holds strings, and search compares against this literal.
const ChargeTrue = "true"

// Account is both a user and, for owner roles, a parking listing.
type Account struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PasswordHash   string
	Phone          null.String
	Role           Role
	ParkAddress    string
	StreetNumber   string
	City           string
	Size           VehicleSize
	OpenMechanism  OpenMechanism
	ElectricCharge string
	Note           string
	Available      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasCharge normalizes the stored flag to a bool.
func (a Account) HasCharge() bool {
	return a.ElectricCharge == ChargeTrue
}

// FullAddress is the geocodable street address of the listing.
func (a Account) FullAddress() string {
	return a.StreetNumber + " " + a.ParkAddress + ", " + a.City
}

type ReservationRequest struct {
	ID          string
	RequesterID string
	OwnerID     string
	Status      RequestStatus
	Note        null.String
	RemindedAt  null.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
