package entities

// Default map zoom around a searched city.
const (
	DefaultLatitudeDelta  = 0.0922
	DefaultLongitudeDelta = 0.0421
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Region struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitude_delta"`
	LongitudeDelta float64 `json:"longitude_delta"`
}

func RegionAround(c Coordinate) Region {
	return Region{
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		LatitudeDelta:  DefaultLatitudeDelta,
		LongitudeDelta: DefaultLongitudeDelta,
	}
}

// SearchRequest carries the filters. CurrentLocation is nil when the device
// refused location access; the search proceeds without that pin.
type SearchRequest struct {
	City            string      `json:"city"`
	Size            string      `json:"size"`
	ElectricCharge  bool        `json:"electric_charge"`
	CurrentLocation *Coordinate `json:"current_location,omitempty"`
}

type SearchResult struct {
	ID             string     `json:"id"`
	Address        string     `json:"address"`
	Coordinate     Coordinate `json:"coordinate"`
	Size           string     `json:"size"`
	ElectricCharge bool       `json:"electric_charge"`
	Available      bool       `json:"available"`
}

type SearchResponse struct {
	Region          Region         `json:"region"`
	CurrentLocation *Coordinate    `json:"current_location,omitempty"`
	Results         []SearchResult `json:"results"`
	Message         string         `json:"message,omitempty"`
}
