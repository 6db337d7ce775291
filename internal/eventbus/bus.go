// Package eventbus implements the pub/sub fan-out for trades,
// order-book deltas, and per-user execution reports (C8, §4.6): a
// bounded channel per subscriber, non-blocking send, drop-on-full.
package eventbus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/domain"
)

// DeltaOp is the kind of order-book-delta event.
type DeltaOp string

const (
	DeltaAdd    DeltaOp = "ADD"
	DeltaModify DeltaOp = "MODIFY"
	DeltaRemove DeltaOp = "REMOVE"
)

// BookDelta is one order_book topic event.
type BookDelta struct {
	Op       DeltaOp
	Contract domain.Contract
	Order    domain.Order
}

// ExecutionReport is one execution_reports topic event, delivered only
// to subscribers bound to Owner.
type ExecutionReport struct {
	Owner          string
	OrderID        string
	Status         domain.OrderStatus
	FilledQuantity int64
	Price          int64
	Quantity       int64
}

// Subscriber is a long-lived push consumer of one topic.
type Subscriber struct {
	ID      uint64
	ch      chan any
	owner   string // set only for execution_reports subscribers
	closeMu sync.Mutex
	closed  bool
}

// Chan exposes the subscriber's delivery channel for the transport layer
// (websocket writer goroutine) to range over.
func (s *Subscriber) Chan() <-chan any { return s.ch }

func (s *Subscriber) send(event any) bool {
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus owns the three topics and their subscriber sets.
type Bus struct {
	mu         sync.Mutex
	nextID     uint64
	bufferSize int
	logger     *zap.Logger

	trades     map[uint64]*Subscriber
	orderBook  map[uint64]*Subscriber
	execReport map[uint64]*Subscriber
}

// New returns an empty bus whose subscriber channels are sized bufferSize.
func New(bufferSize int, logger *zap.Logger) *Bus {
	return &Bus{
		bufferSize: bufferSize,
		logger:     logger,
		trades:     make(map[uint64]*Subscriber),
		orderBook:  make(map[uint64]*Subscriber),
		execReport: make(map[uint64]*Subscriber),
	}
}

func (b *Bus) subscribe(set map[uint64]*Subscriber, owner string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscriber{ID: b.nextID, ch: make(chan any, b.bufferSize), owner: owner}
	set[sub.ID] = sub
	return sub
}

// SubscribeTrades registers a new trades-topic subscriber.
func (b *Bus) SubscribeTrades() *Subscriber { return b.subscribe(b.trades, "") }

// SubscribeOrderBook registers a new order_book-topic subscriber.
func (b *Bus) SubscribeOrderBook() *Subscriber { return b.subscribe(b.orderBook, "") }

// SubscribeExecutionReports registers a new execution_reports subscriber
// bound to owner (requires a valid token per §4.6).
func (b *Bus) SubscribeExecutionReports(owner string) *Subscriber {
	return b.subscribe(b.execReport, owner)
}

// Unsubscribe removes sub from whichever topic set holds it and closes
// its channel. Safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.trades, sub.ID)
	delete(b.orderBook, sub.ID)
	delete(b.execReport, sub.ID)
	b.mu.Unlock()
	sub.close()
}

// PublishTrade delivers t to every current trades subscriber, best
// effort: subscribers whose channel is full are dropped (§4.6).
func (b *Bus) PublishTrade(t domain.Trade) {
	b.publish(b.trades, t)
}

// PublishBookDelta delivers d to every current order_book subscriber.
func (b *Bus) PublishBookDelta(d BookDelta) {
	b.publish(b.orderBook, d)
}

// PublishExecutionReport delivers r only to subscribers bound to r.Owner.
func (b *Bus) PublishExecutionReport(r ExecutionReport) {
	b.mu.Lock()
	targets := make([]*Subscriber, 0, len(b.execReport))
	dropped := make([]*Subscriber, 0)
	for _, sub := range b.execReport {
		if sub.owner == r.Owner {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		if !sub.send(r) {
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		b.Unsubscribe(sub)
	}
}

func (b *Bus) publish(set map[uint64]*Subscriber, event any) {
	b.mu.Lock()
	targets := make([]*Subscriber, 0, len(set))
	for _, sub := range set {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	var dropped []*Subscriber
	for _, sub := range targets {
		if !sub.send(event) {
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		if b.logger != nil {
			b.logger.Warn("eventbus: dropping subscriber on full channel", zap.Uint64("subscriber_id", sub.ID))
		}
		b.Unsubscribe(sub)
	}
}
