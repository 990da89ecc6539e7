package entities

type ReservationEmailData struct {
	RecipientName string
	OtherName     string
	RequestID     string
	Status        string
	Address       string
	Note          string
	CurrentYear   int
}
