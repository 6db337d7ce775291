// Package matchengine implements the price-time-priority matching loop
// and execution-type semantics (C5, §4.2).
package matchengine

import (
	"github.com/faytonn/clobx/internal/book"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/eventbus"
)

// Deps supplies the matching loop with its side effects: a trade id
// generator and the current time, so tests can inject deterministic
// values.
type Deps struct {
	NewTradeID func() string
	NowMillis  func() int64
}

// Result is the outcome of admitting one order.
type Result struct {
	Order    *domain.Order
	Trades   []domain.Trade
	Deltas   []eventbus.BookDelta
	Reports  []eventbus.ExecutionReport
}

// Run executes the matching loop for an already-admitted order o against
// b, then applies execution-type semantics (§4.2). o is mutated in
// place; Run never consults self-match-prevention or collateral (those
// are admission gates run before Run is called).
func Run(b *book.Book, o *domain.Order, deps Deps) Result {
	res := Result{Order: o}

	if o.ExecutionType == domain.FOK {
		if totalCrossable(b, o) < o.Quantity {
			o.Status = domain.StatusCancelled
			o.OriginalQuantity -= o.Quantity // keep FilledQuantity at what actually matched
			o.Quantity = 0
			return res
		}
	}

	for o.Quantity > 0 {
		resting := b.PeekTop(o.Side)
		if !book.Crosses(o.Side, o.Price, resting) {
			break
		}

		q := min64(o.Quantity, resting.Quantity)
		trade := makeTrade(o, resting, q, deps)
		res.Trades = append(res.Trades, trade)

		o.Quantity -= q
		resting.Quantity -= q

		if resting.Quantity == 0 {
			resting.Status = domain.StatusFilled
			b.PopTopOpposite(o.Side)
			res.Deltas = append(res.Deltas, eventbus.BookDelta{Op: eventbus.DeltaRemove, Contract: o.Contract, Order: *resting})
		} else {
			b.FixTopOpposite(o.Side)
			res.Deltas = append(res.Deltas, eventbus.BookDelta{Op: eventbus.DeltaModify, Contract: o.Contract, Order: *resting})
		}
		res.Reports = append(res.Reports, executionReport(resting))
	}

	applyExecutionType(b, o, res, deps)
	res.Reports = append(res.Reports, executionReport(o))
	return res
}

func applyExecutionType(b *book.Book, o *domain.Order, res Result, deps Deps) {
	switch o.ExecutionType {
	case domain.GTC:
		if o.Quantity > 0 {
			o.Status = domain.StatusActive
			b.Insert(o)
		} else {
			o.Status = domain.StatusFilled
		}
	case domain.IOC, domain.FOK:
		if o.Quantity == 0 {
			o.Status = domain.StatusFilled
		} else {
			o.Status = domain.StatusCancelled
			o.OriginalQuantity -= o.Quantity // keep FilledQuantity at what actually matched
			o.Quantity = 0
		}
	}
}

func makeTrade(taker, maker *domain.Order, qty int64, deps Deps) domain.Trade {
	t := domain.Trade{
		TradeID:       deps.NewTradeID(),
		Price:         maker.Price, // maker-wins (§4.2 step 2)
		Quantity:      qty,
		Timestamp:     deps.NowMillis(),
		DeliveryStart: taker.Contract.DeliveryStart,
		DeliveryEnd:   taker.Contract.DeliveryEnd,
		Source:        domain.SourceV2,
	}
	if taker.Side == domain.Buy {
		t.BuyerID, t.SellerID = taker.Owner, maker.Owner
	} else {
		t.BuyerID, t.SellerID = maker.Owner, taker.Owner
	}
	return t
}

func executionReport(o *domain.Order) eventbus.ExecutionReport {
	return eventbus.ExecutionReport{
		Owner:          o.Owner,
		OrderID:        o.OrderID,
		Status:         o.Status,
		FilledQuantity: o.FilledQuantity(),
		Price:          o.Price,
		Quantity:       o.Quantity,
	}
}

// totalCrossable sums the crossable quantity on the opposite side ahead
// of o, for FOK's preflight check (§4.2).
func totalCrossable(b *book.Book, o *domain.Order) int64 {
	var total int64
	for _, resting := range oppositeSorted(b, o.Side) {
		if !book.Crosses(o.Side, o.Price, resting) {
			break
		}
		total += resting.Quantity
	}
	return total
}

func oppositeSorted(b *book.Book, side domain.Side) []*domain.Order {
	if side == domain.Buy {
		return b.Asks()
	}
	return b.Bids()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
