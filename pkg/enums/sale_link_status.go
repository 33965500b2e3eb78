package enums

// SaleLinkStatus is the lifecycle of the ERP sale created for an order.
type SaleLinkStatus string

const (
	SaleLinkCreated   SaleLinkStatus = "CREATED"
	SaleLinkCancelled SaleLinkStatus = "CANCELLED"
	SaleLinkFinalized SaleLinkStatus = "FINALIZED"
)

func (s SaleLinkStatus) String() string { return string(s) }
