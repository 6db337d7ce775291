package engine

import (
	"github.com/faytonn/clobx/internal/admission"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/matchengine"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// SubmitOrderRequest is the admitted-order input for V2 order creation.
type SubmitOrderRequest struct {
	Owner         string
	Side          domain.Side
	Price         int64
	Quantity      int64
	ExecutionType domain.ExecutionType
	Contract      domain.Contract
}

// OrderOutcome is the response shape for submit/modify (§6).
type OrderOutcome struct {
	OrderID        string
	Status         domain.OrderStatus
	FilledQuantity int64
}

// SubmitOrder admits and matches a new V2 order (§4.2, §4.3).
func (e *Engine) SubmitOrder(token string, req SubmitOrderRequest) (OrderOutcome, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return OrderOutcome{}, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}
	req.Owner = owner

	e.mu.Lock()

	admReq := admission.Request{Side: req.Side, Price: req.Price, Quantity: req.Quantity, ExecutionType: req.ExecutionType, Contract: req.Contract}
	b := e.bookFor(req.Contract)
	if err := e.checkAdmission(b, admReq, owner, e.clk.NowMillis()); err != nil {
		e.mu.Unlock()
		return OrderOutcome{}, err
	}

	order := &domain.Order{
		OrderID: newID(), Owner: owner, Contract: req.Contract,
		Side: req.Side, Price: req.Price, Quantity: req.Quantity,
		OriginalQuantity: req.Quantity, ExecutionType: req.ExecutionType,
		CreatedAt: e.clk.NowMillis(),
	}

	res := matchengine.Run(b, order, matchDeps(e))
	if order.Status == domain.StatusActive {
		e.orderContract[order.OrderID] = order.Contract
		res.Deltas = append(res.Deltas, eventbus.BookDelta{Op: eventbus.DeltaAdd, Contract: order.Contract, Order: *order})
	}

	e.publish(res)
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)

	return OrderOutcome{OrderID: order.OrderID, Status: order.Status, FilledQuantity: order.FilledQuantity()}, nil
}

// ModifyOrder re-admits an existing order with a new price/quantity
// (§4.2 Modify).
func (e *Engine) ModifyOrder(token, orderID string, newPrice, newQuantity int64) (OrderOutcome, *xerrors.Error) {
	owner, ok := e.resolveToken(token)
	if !ok {
		return OrderOutcome{}, xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}
	if newQuantity <= 0 {
		return OrderOutcome{}, xerrors.New(xerrors.BadRequest, "quantity must be positive")
	}

	e.mu.Lock()

	contract, ok := e.orderContract[orderID]
	if !ok {
		e.mu.Unlock()
		return OrderOutcome{}, xerrors.New(xerrors.NotFound, "unknown or already-terminal order")
	}
	b := e.bookFor(contract)
	existing, ok := b.Get(orderID)
	if !ok {
		e.mu.Unlock()
		return OrderOutcome{}, xerrors.New(xerrors.NotFound, "unknown or already-terminal order")
	}
	if existing.Owner != owner {
		e.mu.Unlock()
		return OrderOutcome{}, xerrors.New(xerrors.Forbidden, "not the order owner")
	}

	admReq := admission.Request{Side: existing.Side, Price: newPrice, Quantity: newQuantity, ExecutionType: domain.GTC, Contract: contract}
	b.Remove(orderID)
	delete(e.orderContract, orderID)

	if err := e.checkAdmission(b, admReq, owner, e.clk.NowMillis()); err != nil {
		// Re-insert the untouched order: admission failure never mutates state.
		b.Insert(existing)
		e.orderContract[orderID] = contract
		e.mu.Unlock()
		return OrderOutcome{}, err
	}

	deltaPrice := newPrice != existing.Price
	deltaQtyIncrease := newQuantity > existing.Quantity
	filledSoFar := existing.FilledQuantity()

	existing.Price = newPrice
	existing.Quantity = newQuantity
	existing.OriginalQuantity = filledSoFar + newQuantity
	if deltaPrice || deltaQtyIncrease {
		existing.CreatedAt = e.clk.NowMillis()
	}
	existing.Status = domain.StatusActive
	existing.ExecutionType = domain.GTC

	res := matchengine.Run(b, existing, matchDeps(e))
	if existing.Status == domain.StatusActive {
		e.orderContract[existing.OrderID] = existing.Contract
		res.Deltas = append(res.Deltas, eventbus.BookDelta{Op: eventbus.DeltaModify, Contract: existing.Contract, Order: *existing})
	}

	e.publish(res)
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)

	return OrderOutcome{OrderID: existing.OrderID, Status: existing.Status, FilledQuantity: existing.FilledQuantity()}, nil
}

// CancelOrder deactivates an ACTIVE order owned by the caller (§4.2 Cancel).
func (e *Engine) CancelOrder(token, orderID string) *xerrors.Error {
	owner, ok := e.resolveToken(token)
	if !ok {
		return xerrors.New(xerrors.Unauthorized, "invalid or missing token")
	}

	e.mu.Lock()

	contract, ok := e.orderContract[orderID]
	if !ok {
		e.mu.Unlock()
		return xerrors.New(xerrors.NotFound, "unknown or already-terminal order")
	}
	b := e.bookFor(contract)
	existing, ok := b.Get(orderID)
	if !ok {
		e.mu.Unlock()
		return xerrors.New(xerrors.NotFound, "unknown or already-terminal order")
	}
	if existing.Owner != owner {
		e.mu.Unlock()
		return xerrors.New(xerrors.Forbidden, "not the order owner")
	}

	b.Remove(orderID)
	delete(e.orderContract, orderID)
	filled := existing.FilledQuantity()
	existing.Status = domain.StatusCancelled
	existing.Quantity = 0 // terminal orders carry quantity 0 (§3 invariant)

	e.bus.PublishBookDelta(eventbus.BookDelta{Op: eventbus.DeltaRemove, Contract: existing.Contract, Order: *existing})
	e.bus.PublishExecutionReport(eventbus.ExecutionReport{
		Owner: existing.Owner, OrderID: existing.OrderID, Status: existing.Status,
		FilledQuantity: filled, Price: existing.Price, Quantity: existing.Quantity,
	})
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}

func (e *Engine) resolveToken(token string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.creds.Authenticate(token)
}

// AuthenticateToken resolves a bearer token to its owning username for
// callers outside the engine package (the execution-reports stream's
// per-user subscription gate, §4.6).
func (e *Engine) AuthenticateToken(token string) (string, bool) {
	return e.resolveToken(token)
}
