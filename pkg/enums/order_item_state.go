package enums

// OrderItemState is the per-line sync state inside an order.
type OrderItemState string

const (
	OrderItemNew       OrderItemState = "NEW"
	OrderItemReserved  OrderItemState = "RESERVED"
	OrderItemConcluded OrderItemState = "CONCLUDED"
	OrderItemCancelled OrderItemState = "CANCELLED"
)

func (s OrderItemState) String() string { return string(s) }
