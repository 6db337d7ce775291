// Package domain holds the shared value types used across the engine:
// orders, trades, contracts, and their enums (§3).
package domain

// Side is the side of an order or trade participant.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderStatus is the lifecycle state of a V2 order (§4.8).
type OrderStatus string

const (
	StatusActive    OrderStatus = "ACTIVE"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ExecutionType selects how an order behaves once admitted (§4.2).
type ExecutionType string

const (
	GTC ExecutionType = "GTC"
	IOC ExecutionType = "IOC"
	FOK ExecutionType = "FOK"
)

// TradeSource distinguishes the legacy flat V1 book from V2 orders.
type TradeSource string

const (
	SourceV1 TradeSource = "v1"
	SourceV2 TradeSource = "v2"
)

// Contract identifies a one-hour delivery window (§3).
type Contract struct {
	DeliveryStart int64 // Unix ms, hour-aligned
	DeliveryEnd   int64 // Unix ms, DeliveryStart + 1h
}

// HourMillis is the width every contract must span.
const HourMillis = 3_600_000

// Valid reports whether c is hour-aligned and exactly one hour wide (§4.3 gate 1).
func (c Contract) Valid() bool {
	if c.DeliveryStart%HourMillis != 0 {
		return false
	}
	return c.DeliveryEnd-c.DeliveryStart == HourMillis
}

// Order is a resting or in-flight V2 order (§3).
type Order struct {
	OrderID           string
	Owner             string
	Contract          Contract
	Side              Side
	Price             int64
	Quantity          int64 // remaining
	OriginalQuantity  int64
	Status            OrderStatus
	ExecutionType     ExecutionType
	CreatedAt         int64 // ms, time-priority key
}

// FilledQuantity reports how much of the order has been matched so far.
func (o *Order) FilledQuantity() int64 {
	return o.OriginalQuantity - o.Quantity
}

// SignedCommitment is the potential-balance contribution of an ACTIVE
// order (§4.3 gate 4): negative for buys (a liability if filled),
// positive for sells.
func (o *Order) SignedCommitment() int64 {
	commitment := o.Price * o.Quantity
	if o.Side == Buy {
		return -commitment
	}
	return commitment
}

// Trade is an immutable fill record (§3).
type Trade struct {
	TradeID       string
	BuyerID       string
	SellerID      string
	Price         int64
	Quantity      int64
	Timestamp     int64
	DeliveryStart int64
	DeliveryEnd   int64
	Source        TradeSource
}

// V1Order is a legacy sell-only flat order (§3, SUPPLEMENTED FEATURES).
type V1Order struct {
	OrderID   string
	Owner     string
	Contract  Contract
	Price     int64
	Quantity  int64
	Active    bool
	CreatedAt int64
}
