package enums

// EventCode is the short marketplace lifecycle code carried by every order
// event, whether it arrives on the webhook or through polling.
type EventCode string

const (
	EventPlaced    EventCode = "PLC"
	EventConfirmed EventCode = "CFM"
	EventPreparing EventCode = "PRS"
	EventDispatch  EventCode = "DSP"
	EventCancelled EventCode = "CAN"
	EventConcluded EventCode = "CON"
)

var knownEventCodes = map[EventCode]struct{}{
	EventPlaced:    {},
	EventConfirmed: {},
	EventPreparing: {},
	EventDispatch:  {},
	EventCancelled: {},
	EventConcluded: {},
}

func (c EventCode) String() string { return string(c) }

// Known reports whether the code is one the pipeline acts on. Unknown codes
// are recorded for dedup and then discarded.
func (c EventCode) Known() bool {
	_, ok := knownEventCodes[c]
	return ok
}

// OrderStatus maps the event code onto the order snapshot status column.
func (c EventCode) OrderStatus() OrderStatus {
	switch c {
	case EventPlaced:
		return OrderStatusPlaced
	case EventConfirmed:
		return OrderStatusConfirmed
	case EventPreparing:
		return OrderStatusPreparing
	case EventDispatch:
		return OrderStatusDispatched
	case EventCancelled:
		return OrderStatusCancelled
	case EventConcluded:
		return OrderStatusConcluded
	default:
		return OrderStatusUnknown
	}
}

// OrderStatus is the persisted order lifecycle state.
type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "PLACED"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusDispatched OrderStatus = "DISPATCHED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusConcluded  OrderStatus = "CONCLUDED"
	OrderStatusUnknown    OrderStatus = "UNKNOWN"
)

func (s OrderStatus) String() string { return string(s) }
