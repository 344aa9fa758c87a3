package domain

// SequenceCounterID is the primary key of the single order_sequence row.
const SequenceCounterID = 1

type SequenceCounter struct {
	ID            int   `db:"id"`
	CurrentNumber int64 `db:"current_number"`
}

type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
	OrderEventRemoved OrderEventType = "order.removed"
)

// OrderEvent is published after a committed change to an order.
type OrderEvent struct {
	Type        OrderEventType `json:"type"`
	OrderID     uint64         `json:"orderId"`
	OrderNumber int64          `json:"orderNumber"`
	Quantity    int            `json:"quantity"`
	Status      OrderStatus    `json:"status"`
}

// BoardStats is a point-in-time snapshot of the active board.
type BoardStats struct {
	Active        map[OrderStatus]int
	CurrentNumber int64
}
