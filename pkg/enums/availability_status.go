package enums

// AvailabilityStatus mirrors the marketplace catalog status for an item.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "AVAILABLE"
	AvailabilityUnavailable AvailabilityStatus = "UNAVAILABLE"
)

func (s AvailabilityStatus) String() string { return string(s) }

func (s AvailabilityStatus) Valid() bool {
	return s == AvailabilityAvailable || s == AvailabilityUnavailable
}
