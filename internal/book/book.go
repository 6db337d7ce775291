// Package book implements the per-contract two-sided price-time-priority
// order book (C4), backed by container/heap exactly as the reference
// matching engine's OrderHeap, generalized to integer price and an
// order_id index for O(1) lookup. The index maps an id to its order, not
// to its heap slot, so remove-by-id scans that side linearly for the slot
// (O(n)) before the O(log n) heap removal.
package book

import (
	"container/heap"

	"github.com/faytonn/clobx/internal/domain"
)

// heapSide distinguishes bid ordering from ask ordering.
type heapSide int

const (
	bidSide heapSide = iota
	askSide
)

// orderHeap is a container/heap.Interface over resting orders for one
// side of one contract.
type orderHeap struct {
	orders []*domain.Order
	side   heapSide
}

func (h orderHeap) Len() int { return len(h.orders) }

func (h orderHeap) Less(i, j int) bool {
	oi, oj := h.orders[i], h.orders[j]
	if oi.Price == oj.Price {
		return oi.CreatedAt < oj.CreatedAt
	}
	if h.side == bidSide {
		return oi.Price > oj.Price // highest bid first
	}
	return oi.Price < oj.Price // lowest ask first
}

func (h orderHeap) Swap(i, j int) {
	h.orders[i], h.orders[j] = h.orders[j], h.orders[i]
}

func (h *orderHeap) Push(x any) {
	h.orders = append(h.orders, x.(*domain.Order))
}

func (h *orderHeap) Pop() any {
	old := h.orders
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return o
}

func (h *orderHeap) peek() *domain.Order {
	if len(h.orders) == 0 {
		return nil
	}
	return h.orders[0]
}

// Book is the two-sided book for a single contract.
type Book struct {
	Contract domain.Contract
	bids     *orderHeap
	asks     *orderHeap
	byID     map[string]*domain.Order
}

// New returns an empty book for contract.
func New(contract domain.Contract) *Book {
	return &Book{
		Contract: contract,
		bids:     &orderHeap{side: bidSide},
		asks:     &orderHeap{side: askSide},
		byID:     make(map[string]*domain.Order),
	}
}

func (b *Book) heapFor(side domain.Side) *orderHeap {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeHeapFor(side domain.Side) *orderHeap {
	if side == domain.Buy {
		return b.asks
	}
	return b.bids
}

// Insert adds an ACTIVE order to its side of the book.
func (b *Book) Insert(o *domain.Order) {
	heap.Push(b.heapFor(o.Side), o)
	b.byID[o.OrderID] = o
}

// PeekTop returns the best resting order opposite to side, without removing it.
func (b *Book) PeekTop(side domain.Side) *domain.Order {
	return b.oppositeHeapFor(side).peek()
}

// PeekBestBid returns the best resting bid, or nil if the book has none.
func (b *Book) PeekBestBid() *domain.Order { return b.bids.peek() }

// PeekBestAsk returns the best resting ask, or nil if the book has none.
func (b *Book) PeekBestAsk() *domain.Order { return b.asks.peek() }

// Get returns the resting order with id, if present.
func (b *Book) Get(orderID string) (*domain.Order, bool) {
	o, ok := b.byID[orderID]
	return o, ok
}

// PopTopOpposite removes and returns the best resting order opposite to
// side (used once it has been fully filled).
func (b *Book) PopTopOpposite(side domain.Side) *domain.Order {
	h := b.oppositeHeapFor(side)
	if h.Len() == 0 {
		return nil
	}
	o := heap.Pop(h).(*domain.Order)
	delete(b.byID, o.OrderID)
	return o
}

// FixTopOpposite re-establishes heap order after the top element's
// quantity (but not its price/created_at) has been mutated in place.
func (b *Book) FixTopOpposite(side domain.Side) {
	heap.Fix(b.oppositeHeapFor(side), 0)
}

// Remove deletes the order with id from whichever side holds it.
// Reports false if the order is not resting in the book.
func (b *Book) Remove(orderID string) bool {
	o, ok := b.byID[orderID]
	if !ok {
		return false
	}
	h := b.heapFor(o.Side)
	for i, cur := range h.orders {
		if cur.OrderID == orderID {
			heap.Remove(h, i)
			delete(b.byID, orderID)
			return true
		}
	}
	return false
}

// Crosses reports whether resting would cross against an incoming order
// of side/price.
func Crosses(incomingSide domain.Side, incomingPrice int64, resting *domain.Order) bool {
	if resting == nil {
		return false
	}
	if incomingSide == domain.Buy {
		return resting.Price <= incomingPrice
	}
	return resting.Price >= incomingPrice
}

// Bids returns all resting bids, best-first (callers must not mutate).
func (b *Book) Bids() []*domain.Order { return snapshotSorted(b.bids) }

// Asks returns all resting asks, best-first (callers must not mutate).
func (b *Book) Asks() []*domain.Order { return snapshotSorted(b.asks) }

// snapshotSorted returns a best-first copy of h's contents without
// disturbing the live heap (container/heap's backing slice is only
// heap-ordered at the root, so we sort a copy for read views).
func snapshotSorted(h *orderHeap) []*domain.Order {
	cp := make([]*domain.Order, len(h.orders))
	copy(cp, h.orders)
	tmp := &orderHeap{orders: cp, side: h.side}
	out := make([]*domain.Order, 0, len(cp))
	for tmp.Len() > 0 {
		out = append(out, heap.Pop(tmp).(*domain.Order))
	}
	return out
}
