package entities

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
}

// RegisterRequest is the sign-up form. Listing fields only matter for
// owner roles.
type RegisterRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Phone          string `json:"phone"`
	Role           string `json:"role"`
	ParkAddress    string `json:"park_address"`
	StreetNumber   string `json:"street_number"`
	City           string `json:"city"`
	Size           string `json:"size"`
	OpenMechanism  string `json:"open_mechanism"`
	ElectricCharge bool   `json:"electric_charge"`
	Note           string `json:"note"`
}
