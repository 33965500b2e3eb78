package enums

// Channel identifies which sales channel owns a reservation or adjustment.
type Channel string

const (
	ChannelIFood  Channel = "IFOOD"
	ChannelPDV    Channel = "PDV"
	ChannelManual Channel = "MANUAL"
)

func (c Channel) String() string { return string(c) }
