package entities

// ProfileForm is the full set of candidate values from the account screen.
// A blank Password means "keep the current one".
type ProfileForm struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
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

type Profile struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Role           string `json:"role"`
	ParkAddress    string `json:"park_address"`
	StreetNumber   string `json:"street_number"`
	City           string `json:"city"`
	Size           string `json:"size"`
	OpenMechanism  string `json:"open_mechanism"`
	ElectricCharge bool   `json:"electric_charge"`
	Note           string `json:"note"`
	Available      bool   `json:"available"`
}

type ProfileUpdateResult struct {
	Changed   []string `json:"changed"`
	NoChanges bool     `json:"no_changes"`
	Message   string   `json:"message"`
}
