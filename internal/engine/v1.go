package engine

import (
	"sort"

	"github.com/faytonn/clobx/internal/admission"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// V1CreateRequest is the legacy sell-only order input (SUPPLEMENTED
// FEATURES: V1 legacy sell orders). There is no execution-type choice and
// no buy side — the original flat `active` bit supports exactly one
// lifecycle: rest until taken. There is no V1 cancel operation.
type V1CreateRequest struct {
	Price    int64
	Quantity int64
	Contract domain.Contract
}

// V1OrderView is the read-only projection of a V1 order (§6 GET /v1/orders).
type V1OrderView struct {
	OrderID  string
	Owner    string
	Price    int64
	Quantity int64
	Active   bool
}

func toV1View(o *domain.V1Order) V1OrderView {
	return V1OrderView{OrderID: o.OrderID, Owner: o.Owner, Price: o.Price, Quantity: o.Quantity, Active: o.Active}
}

// CreateV1Order admits a sell-only legacy order. It reuses gates 1 and 2
// of the V2 admission pipeline (shape, trading window); self-match
// prevention and collateral do not apply since a V1 order never matches
// until explicitly taken (§3 Legacy V1 orders).
func (e *Engine) CreateV1Order(token string, req V1CreateRequest) (V1OrderView, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return V1OrderView{}, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}
	if req.Quantity <= 0 {
		return V1OrderView{}, xerrors.New(xerrors.BadRequest, "quantity must be positive")
	}
	if !req.Contract.Valid() {
		return V1OrderView{}, xerrors.New(xerrors.BadRequest, "contract must be hour-aligned and one hour wide")
	}

	e.mu.Lock()
	now := e.clk.NowMillis()
	if err := admission.CheckWindow(now, req.Contract, e.window.PreWindowDays, e.window.PostWindowSec); err != nil {
		e.mu.Unlock()
		return V1OrderView{}, err
	}

	o := &domain.V1Order{
		OrderID:   newID(),
		Owner:     owner,
		Contract:  req.Contract,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Active:    true,
		CreatedAt: now,
	}
	e.v1Orders[o.OrderID] = o
	e.mu.Unlock()

	return toV1View(o), nil
}

// V1Orders lists active V1 orders for a contract, oldest first (§6 GET
// /v1/orders?delivery_start=&delivery_end=).
func (e *Engine) V1Orders(contract domain.Contract) []V1OrderView {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []V1OrderView
	var matched []*domain.V1Order
	for _, o := range e.v1Orders {
		if o.Active && o.Contract == contract {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt < matched[j].CreatedAt })
	for _, o := range matched {
		out = append(out, toV1View(o))
	}
	return out
}

// TakeV1Order lets a buyer take the full remaining quantity of one active
// V1 order at its listed price (§3, SUPPLEMENTED FEATURES). Partial takes
// are not supported by the legacy flat `active` bit.
func (e *Engine) TakeV1Order(token, orderID string) *xerrors.Error {
	buyer, ok := e.resolveToken(token)
	if !ok {
		return xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}

	e.mu.Lock()
	o, ok := e.v1Orders[orderID]
	if !ok || !o.Active {
		e.mu.Unlock()
		return xerrors.New(xerrors.NotFound, "unknown or already-taken v1 order")
	}
	if o.Owner == buyer {
		e.mu.Unlock()
		return xerrors.New(xerrors.PreconditionFailed, "self-match would occur")
	}

	o.Active = false
	trade := domain.Trade{
		TradeID: newID(), BuyerID: buyer, SellerID: o.Owner,
		Price: o.Price, Quantity: o.Quantity, Timestamp: e.clk.NowMillis(),
		DeliveryStart: o.Contract.DeliveryStart, DeliveryEnd: o.Contract.DeliveryEnd,
		Source: domain.SourceV1,
	}
	e.ledger.Apply(trade)
	e.bus.PublishTrade(trade)
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}
