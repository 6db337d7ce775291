package engine

import (
	"sort"

	"github.com/faytonn/clobx/internal/admission"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/ledger"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// OrderView is the read-only projection of a resting or terminal order
// returned by book/order queries (§6).
type OrderView struct {
	OrderID          string
	Owner            string
	Side             domain.Side
	Price            int64
	Quantity         int64
	OriginalQuantity int64
	Status           domain.OrderStatus
	ExecutionType    domain.ExecutionType
	CreatedAt        int64
}

func toOrderView(o *domain.Order) OrderView {
	return OrderView{
		OrderID: o.OrderID, Owner: o.Owner, Side: o.Side, Price: o.Price,
		Quantity: o.Quantity, OriginalQuantity: o.OriginalQuantity,
		Status: o.Status, ExecutionType: o.ExecutionType, CreatedAt: o.CreatedAt,
	}
}

// BookView is the order_book read (§6 GET /v2/orders); a read never fails
// outside the contract's trading window (§4.3.2), it returns an empty
// book instead — even one that in fact holds resting orders placed
// during the valid window.
type BookView struct {
	Contract domain.Contract
	Bids     []OrderView
	Asks     []OrderView
}

// GetBook returns the current resting orders for contract, best-first on
// each side, or an empty view once the contract has fallen outside its
// trading window.
func (e *Engine) GetBook(contract domain.Contract) BookView {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clk.NowMillis()
	if err := admission.CheckWindow(now, contract, e.window.PreWindowDays, e.window.PostWindowSec); err != nil {
		return BookView{Contract: contract}
	}

	b, ok := e.books[contract]
	if !ok {
		return BookView{Contract: contract}
	}
	view := BookView{Contract: contract}
	for _, o := range b.Bids() {
		view.Bids = append(view.Bids, toOrderView(o))
	}
	for _, o := range b.Asks() {
		view.Asks = append(view.Asks, toOrderView(o))
	}
	return view
}

// MyOrders returns every ACTIVE order owned by the authenticated caller,
// across all contracts, newest-created first (§6 GET /v2/my-orders).
func (e *Engine) MyOrders(token string) ([]OrderView, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return nil, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	orders := e.activeOrdersByUser(owner)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt > orders[j].CreatedAt })
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out, nil
}

// TradeView is the read-only projection of a trade returned by trade
// queries (§6).
type TradeView struct {
	TradeID       string
	BuyerID       string
	SellerID      string
	Price         int64
	Quantity      int64
	Timestamp     int64
	DeliveryStart int64
	DeliveryEnd   int64
}

func toTradeView(t domain.Trade) TradeView {
	return TradeView{
		TradeID: t.TradeID, BuyerID: t.BuyerID, SellerID: t.SellerID,
		Price: t.Price, Quantity: t.Quantity, Timestamp: t.Timestamp,
		DeliveryStart: t.DeliveryStart, DeliveryEnd: t.DeliveryEnd,
	}
}

// Trades returns every V2 trade for contract, newest first
// (§6 GET /v2/trades?delivery_start=&delivery_end=).
func (e *Engine) Trades(contract domain.Contract) []TradeView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v2 := e.ledger.V2Trades()
	out := make([]TradeView, 0, len(v2))
	for _, t := range v2 {
		if t.DeliveryStart == contract.DeliveryStart && t.DeliveryEnd == contract.DeliveryEnd {
			out = append(out, toTradeView(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// MyTradeView annotates a trade with the caller's side/counterparty
// (§6 GET /v2/my-trades).
type MyTradeView struct {
	TradeView
	Role         string // "buyer" or "seller"
	Counterparty string
}

// MyTrades returns every V2 trade the authenticated caller participated
// in as buyer or seller within contract, newest first, annotated with
// role and counterparty (§6 GET /v2/my-trades?delivery_start=&delivery_end=).
func (e *Engine) MyTrades(token string, contract domain.Contract) ([]MyTradeView, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return nil, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}

	e.mu.Lock()
	v2 := e.ledger.V2Trades()
	e.mu.Unlock()

	var out []MyTradeView
	for _, t := range v2 {
		if t.DeliveryStart != contract.DeliveryStart || t.DeliveryEnd != contract.DeliveryEnd {
			continue
		}
		switch owner {
		case t.BuyerID:
			out = append(out, MyTradeView{TradeView: toTradeView(t), Role: "buyer", Counterparty: t.SellerID})
		case t.SellerID:
			out = append(out, MyTradeView{TradeView: toTradeView(t), Role: "seller", Counterparty: t.BuyerID})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// BalanceView is the response shape for GET /balance (§6).
type BalanceView struct {
	Balance          int64
	PotentialBalance int64
	CollateralLimit  int64 // ledger.Unlimited when no limit is configured
}

// Balance reports the authenticated caller's current balance, potential
// balance, and collateral limit (§4.4, §4.3 gate 4).
func (e *Engine) Balance(token string) (BalanceView, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return BalanceView{}, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance := e.ledger.Balance(owner)
	limit := e.ledger.CollateralLimit(owner)
	potential := ledger.PotentialBalance(balance, e.activeOrdersByUser(owner))
	return BalanceView{Balance: balance, PotentialBalance: potential, CollateralLimit: limit}, nil
}

// SetCollateral sets a user's collateral limit; gated on the admin
// bearer literal rather than a user token (§6, §9).
func (e *Engine) SetCollateral(adminBearer, username string, limit int64) *xerrors.Error {
	if adminBearer != e.admin {
		return xerrors.New(xerrors.Unauthorized, "invalid admin credentials")
	}

	e.mu.Lock()
	if !e.creds.UserExists(username) {
		e.mu.Unlock()
		return xerrors.New(xerrors.NotFound, "unknown user")
	}
	e.ledger.SetCollateralLimit(username, limit)
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}
