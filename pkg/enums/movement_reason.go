package enums

// MovementReason annotates rows in the ERP stock ledger.
type MovementReason string

const (
	MovementSale       MovementReason = "SALE"
	MovementCancel     MovementReason = "CANCEL"
	MovementAdjustment MovementReason = "ADJUSTMENT"
)

func (r MovementReason) String() string { return string(r) }
