// Package engine composes the credential store, ledger, order books,
// and event bus behind the single critical-section mutex the rest of
// the system requires (§5, §9 "global mutable state as a single
// owner"). Every mutating operation here runs to completion while
// holding Engine.mu; no I/O happens inside the critical section —
// snapshot writes are dispatched after the lock is released.
package engine

import (
	"sync"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/admission"
	"github.com/faytonn/clobx/internal/book"
	"github.com/faytonn/clobx/internal/clock"
	"github.com/faytonn/clobx/internal/credentials"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/ledger"
	"github.com/faytonn/clobx/internal/matchengine"
	"github.com/faytonn/clobx/internal/snapshot"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// WindowParams controls the trading-window gate (§4.3.2).
type WindowParams struct {
	PreWindowDays int
	PostWindowSec int
}

// Engine owns all mutable exchange state behind a single mutex.
type Engine struct {
	mu sync.Mutex

	clk    clock.Clock
	logger *zap.Logger
	window WindowParams
	admin  string // admin bearer literal, §6/§9

	creds  *credentials.Store
	ledger *ledger.Ledger
	bus    *eventbus.Bus
	snap   *snapshot.Writer

	books         map[domain.Contract]*book.Book
	orderContract map[string]domain.Contract // order_id -> contract, for modify/cancel lookup
	v1Orders      map[string]*domain.V1Order

	snapSeq int64 // monotonic, assigned under mu so SaveAsync writes never land out of commit order
}

// New constructs an Engine with its collaborators already wired.
func New(clk clock.Clock, logger *zap.Logger, bus *eventbus.Bus, snap *snapshot.Writer, window WindowParams, adminBearer string) *Engine {
	return &Engine{
		clk:           clk,
		logger:        logger,
		window:        window,
		admin:         adminBearer,
		creds:         credentials.New(logger),
		ledger:        ledger.New(),
		bus:           bus,
		snap:          snap,
		books:         make(map[domain.Contract]*book.Book),
		orderContract: make(map[string]domain.Contract),
		v1Orders:      make(map[string]*domain.V1Order),
	}
}

func newID() string { return ksuid.New().String() }

func (e *Engine) bookFor(c domain.Contract) *book.Book {
	b, ok := e.books[c]
	if !ok {
		b = book.New(c)
		e.books[c] = b
	}
	return b
}

// activeOrdersByUser scans every contract's book for user's ACTIVE
// orders (§4.3 gate 4 potential-balance formula). Must be called with
// mu held.
func (e *Engine) activeOrdersByUser(user string) []*domain.Order {
	var out []*domain.Order
	for _, b := range e.books {
		for _, o := range b.Bids() {
			if o.Owner == user {
				out = append(out, o)
			}
		}
		for _, o := range b.Asks() {
			if o.Owner == user {
				out = append(out, o)
			}
		}
	}
	return out
}

func (e *Engine) persistSnapshotLocked() snapshot.State {
	state := snapshot.State{
		Users:      make(map[string]snapshot.PersistedUser),
		Collateral: e.ledger.ExportCollateral(),
	}
	creds := e.creds.Export()
	for name, u := range creds.Users {
		state.Users[name] = snapshot.PersistedUser{PasswordHash: u.PasswordHash, DNASamples: u.DNASamples}
	}
	for _, b := range e.books {
		for _, o := range b.Bids() {
			state.Orders = append(state.Orders, toPersistedOrder(o))
		}
		for _, o := range b.Asks() {
			state.Orders = append(state.Orders, toPersistedOrder(o))
		}
	}
	for _, t := range e.ledger.V2Trades() {
		state.Trades = append(state.Trades, snapshot.PersistedTrade{
			TradeID: t.TradeID, BuyerID: t.BuyerID, SellerID: t.SellerID,
			Price: t.Price, Quantity: t.Quantity, Timestamp: t.Timestamp,
			DeliveryStart: t.DeliveryStart, DeliveryEnd: t.DeliveryEnd,
		})
	}
	return state
}

func toPersistedOrder(o *domain.Order) snapshot.PersistedOrder {
	return snapshot.PersistedOrder{
		OrderID: o.OrderID, Owner: o.Owner,
		DeliveryStart: o.Contract.DeliveryStart, DeliveryEnd: o.Contract.DeliveryEnd,
		Side: string(o.Side), Price: o.Price, Quantity: o.Quantity,
		OriginalQuantity: o.OriginalQuantity, Status: string(o.Status),
		ExecutionType: string(o.ExecutionType), CreatedAt: o.CreatedAt,
	}
}

// snapshotLocked captures the state to persist after a commit (§4.7),
// stamped with a sequence number assigned while mu is held so it
// reflects true commit order. Call with mu held; the caller must unlock
// before handing the result to snap.SaveAsync so the write itself
// happens outside the critical section (§5 suspension points).
func (e *Engine) snapshotLocked() snapshot.State {
	state := e.persistSnapshotLocked()
	e.snapSeq++
	state.Seq = e.snapSeq
	return state
}

// LoadSnapshot restores users, DNA samples, and V2 order/trade history
// from disk, then rebuilds balances by replaying only V2 trades (§4.7).
// V1 state is intentionally left empty.
func (e *Engine) LoadSnapshot(state *snapshot.State) {
	if state == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	creds := credentials.Snapshot{Users: make(map[string]credentials.PersistedUser, len(state.Users))}
	for name, u := range state.Users {
		creds.Users[name] = credentials.PersistedUser{PasswordHash: u.PasswordHash, DNASamples: u.DNASamples}
	}
	e.creds.Import(creds)

	var trades []domain.Trade
	for _, t := range state.Trades {
		trades = append(trades, domain.Trade{
			TradeID: t.TradeID, BuyerID: t.BuyerID, SellerID: t.SellerID,
			Price: t.Price, Quantity: t.Quantity, Timestamp: t.Timestamp,
			DeliveryStart: t.DeliveryStart, DeliveryEnd: t.DeliveryEnd,
			Source: domain.SourceV2,
		})
	}
	e.ledger.RebuildFromV2Trades(trades)
	e.ledger.ImportCollateral(state.Collateral)

	for _, po := range state.Orders {
		if po.Status != string(domain.StatusActive) {
			continue
		}
		o := &domain.Order{
			OrderID: po.OrderID, Owner: po.Owner,
			Contract:         domain.Contract{DeliveryStart: po.DeliveryStart, DeliveryEnd: po.DeliveryEnd},
			Side:             domain.Side(po.Side),
			Price:            po.Price,
			Quantity:         po.Quantity,
			OriginalQuantity: po.OriginalQuantity,
			Status:           domain.StatusActive,
			ExecutionType:    domain.ExecutionType(po.ExecutionType),
			CreatedAt:        po.CreatedAt,
		}
		e.bookFor(o.Contract).Insert(o)
		e.orderContract[o.OrderID] = o.Contract
	}
}

// --- admission helpers shared by submit/modify/bulk ---

func (e *Engine) checkAdmission(b *book.Book, req admission.Request, submitter string, now int64) *xerrors.Error {
	if err := admission.CheckShape(req); err != nil {
		return err
	}
	if err := admission.CheckWindow(now, req.Contract, e.window.PreWindowDays, e.window.PostWindowSec); err != nil {
		return err
	}
	if err := admission.CheckSelfMatch(b, submitter, req.Side, req.Price); err != nil {
		return err
	}
	newCommitment := (&domain.Order{Side: req.Side, Price: req.Price, Quantity: req.Quantity}).SignedCommitment()
	balance := e.ledger.Balance(submitter)
	collateral := e.ledger.CollateralLimit(submitter)
	if err := admission.CheckCollateral(balance, e.activeOrdersByUser(submitter), collateral, newCommitment); err != nil {
		return err
	}
	return nil
}

func matchDeps(e *Engine) matchengine.Deps {
	return matchengine.Deps{NewTradeID: newID, NowMillis: e.clk.NowMillis}
}

func (e *Engine) publish(res matchengine.Result) {
	for _, t := range res.Trades {
		e.ledger.Apply(t)
		e.bus.PublishTrade(t)
	}
	for _, d := range res.Deltas {
		e.bus.PublishBookDelta(d)
	}
	for _, r := range res.Reports {
		e.bus.PublishExecutionReport(r)
	}
}
