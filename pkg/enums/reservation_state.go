package enums

// ReservationState tracks a stock reservation ledger row. Only ACTIVE rows
// count toward published availability.
type ReservationState string

const (
	ReservationActive    ReservationState = "ACTIVE"
	ReservationCancelled ReservationState = "CANCELLED"
	ReservationConsumed  ReservationState = "CONSUMED"
)

func (s ReservationState) String() string { return string(s) }
