package domain

import (
	"fmt"
	"time"
)

const (
	MinQuantity = 1
	MaxQuantity = 5
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
)

// rank orders the lifecycle: pending (cooking) -> ready -> completed.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusReady:     1,
	OrderStatusCompleted: 2,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	if _, ok := statusRank[status]; !ok {
		return "", false
	}
	return status, true
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsActive reports whether an order in this status belongs on the board.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusPending || s == OrderStatusReady
}

// IsBackwardFrom reports whether moving from prev to s goes against the lifecycle.
func (s OrderStatus) IsBackwardFrom(prev OrderStatus) bool {
	return statusRank[s] < statusRank[prev]
}

func ValidQuantity(quantity int) bool {
	return quantity >= MinQuantity && quantity <= MaxQuantity
}

type Order struct {
	ID          uint64      `db:"id"`
	OrderNumber int64       `db:"order_number"`
	Quantity    int         `db:"quantity"`
	Status      OrderStatus `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	DeletedAt   *time.Time  `db:"deleted_at"`
}

func (o Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

// DisplayLabel is the number shown on the public screen, zero-padded to three digits.
func (o Order) DisplayLabel() string {
	return fmt.Sprintf("%03d", o.OrderNumber)
}

// OrderPatch carries the optional fields of a partial update.
type OrderPatch struct {
	Status   *OrderStatus
	Quantity *int
}

func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.Quantity == nil
}

type DeleteMode string

const (
	DeleteModeSoft DeleteMode = "soft"
	DeleteModeHard DeleteMode = "hard"
)

func ParseDeleteMode(s string) (DeleteMode, error) {
	switch DeleteMode(s) {
	case DeleteModeSoft, "":
		return DeleteModeSoft, nil
	case DeleteModeHard:
		return DeleteModeHard, nil
	}
	return "", fmt.Errorf("unknown delete mode %q", s)
}
