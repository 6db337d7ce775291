package engine

import (
	"github.com/faytonn/clobx/internal/admission"
	"github.com/faytonn/clobx/internal/book"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/matchengine"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// BulkOpType is the kind of one staged operation within a bulk batch.
type BulkOpType string

const (
	BulkCreate BulkOpType = "create"
	BulkModify BulkOpType = "modify"
	BulkCancel BulkOpType = "cancel"
)

// BulkOp is one staged operation; it carries its own participant token so a
// batch may mix different users (§4.5).
type BulkOp struct {
	Type             BulkOpType
	ParticipantToken string
	Side             domain.Side
	Price            int64
	Quantity         int64
	ExecutionType    domain.ExecutionType
	OrderID          string // modify/cancel target
	NewPrice         int64  // modify
	NewQuantity      int64  // modify
}

// BulkContract groups the ops that apply to one delivery-window contract.
type BulkContract struct {
	Contract   domain.Contract
	Operations []BulkOp
}

// BulkOpResult is the per-op outcome returned in request order (§6).
type BulkOpResult struct {
	Type     BulkOpType
	OrderID  string
	Status   domain.OrderStatus
	Quantity int64
}

// bulkPlan accumulates the staged effects of a successful simulation so
// commit can apply them to real state without re-running admission.
type bulkPlan struct {
	shadowBooks map[domain.Contract]*book.Book
	balanceOf   map[string]int64 // delta relative to the real ledger balance
	trades      []domain.Trade
	deltas      []eventbus.BookDelta
	reports     []eventbus.ExecutionReport
	results     []BulkOpResult
}

// BulkOperations runs the all-or-nothing simulate-then-commit transaction
// (C7, §4.5). It holds Engine.mu for the whole call: since no other
// mutation can be observed meanwhile, simulating against a shadow and then
// applying the identical staged results to real state is equivalent to
// replaying the batch, without redoing admission/matching twice.
func (e *Engine) BulkOperations(contracts []BulkContract) ([]BulkOpResult, *xerrors.Error) {
	e.mu.Lock()

	plan, err := e.simulateBulk(contracts)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	for contract, shadow := range plan.shadowBooks {
		e.books[contract] = shadow
		for _, oc := range append(append([]*domain.Order(nil), shadow.Bids()...), shadow.Asks()...) {
			e.orderContract[oc.OrderID] = contract
		}
	}
	// Orders that left the book (filled or cancelled) during the batch no
	// longer belong in the lookup index.
	for contract := range plan.shadowBooks {
		live := make(map[string]bool)
		for _, o := range append(append([]*domain.Order(nil), e.books[contract].Bids()...), e.books[contract].Asks()...) {
			live[o.OrderID] = true
		}
		for id, c := range e.orderContract {
			if c == contract && !live[id] {
				delete(e.orderContract, id)
			}
		}
	}

	for _, t := range plan.trades {
		e.ledger.Apply(t)
	}
	for _, d := range plan.deltas {
		e.bus.PublishBookDelta(d)
	}
	for _, t := range plan.trades {
		e.bus.PublishTrade(t)
	}
	for _, r := range plan.reports {
		e.bus.PublishExecutionReport(r)
	}

	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return plan.results, nil
}

// simulateBulk must be called with mu held. It never mutates real engine
// state; on any per-op failure it returns that op's error and the shadow
// state built so far is discarded by the caller.
func (e *Engine) simulateBulk(contracts []BulkContract) (*bulkPlan, *xerrors.Error) {
	plan := &bulkPlan{
		shadowBooks: make(map[domain.Contract]*book.Book),
		balanceOf:   make(map[string]int64),
	}

	for _, bc := range contracts {
		shadow := e.cloneBookForShadow(bc.Contract)
		plan.shadowBooks[bc.Contract] = shadow

		for _, op := range bc.Operations {
			owner, ok := e.creds.Authenticate(op.ParticipantToken)
			if !ok {
				return nil, xerrors.New(xerrors.Unauthorized, "invalid or missing token").WithDetails(string(op.Type))
			}

			switch op.Type {
			case BulkCreate:
				res, err := e.simulateCreate(plan, shadow, bc.Contract, owner, op)
				if err != nil {
					return nil, err
				}
				plan.results = append(plan.results, res)

			case BulkModify:
				res, err := e.simulateModify(plan, shadow, bc.Contract, owner, op)
				if err != nil {
					return nil, err
				}
				plan.results = append(plan.results, res)

			case BulkCancel:
				res, err := e.simulateCancel(plan, shadow, owner, op)
				if err != nil {
					return nil, err
				}
				plan.results = append(plan.results, res)

			default:
				return nil, xerrors.Newf(xerrors.BadRequest, "unknown bulk op type %q", op.Type)
			}
		}
	}
	return plan, nil
}

func (e *Engine) cloneBookForShadow(contract domain.Contract) *book.Book {
	shadow := book.New(contract)
	real, ok := e.books[contract]
	if !ok {
		return shadow
	}
	for _, o := range real.Bids() {
		cp := *o
		shadow.Insert(&cp)
	}
	for _, o := range real.Asks() {
		cp := *o
		shadow.Insert(&cp)
	}
	return shadow
}

func (e *Engine) simulateCreate(plan *bulkPlan, shadow *book.Book, contract domain.Contract, owner string, op BulkOp) (BulkOpResult, *xerrors.Error) {
	req := admission.Request{Side: op.Side, Price: op.Price, Quantity: op.Quantity, ExecutionType: op.ExecutionType, Contract: contract}
	if err := e.bulkCheckAdmission(plan, shadow, req, owner); err != nil {
		return BulkOpResult{}, err
	}

	order := &domain.Order{
		OrderID: newID(), Owner: owner, Contract: contract,
		Side: op.Side, Price: op.Price, Quantity: op.Quantity,
		OriginalQuantity: op.Quantity, ExecutionType: op.ExecutionType,
		CreatedAt: e.clk.NowMillis(),
	}
	res := matchengine.Run(shadow, order, matchDeps(e))
	e.applyBulkResult(plan, contract, res)
	if order.Status == domain.StatusActive {
		plan.deltas = append(plan.deltas, eventbus.BookDelta{Op: eventbus.DeltaAdd, Contract: contract, Order: *order})
	}
	return BulkOpResult{Type: BulkCreate, OrderID: order.OrderID, Status: order.Status, Quantity: order.FilledQuantity()}, nil
}

func (e *Engine) simulateModify(plan *bulkPlan, shadow *book.Book, contract domain.Contract, owner string, op BulkOp) (BulkOpResult, *xerrors.Error) {
	existing, ok := shadow.Get(op.OrderID)
	if !ok {
		return BulkOpResult{}, xerrors.New(xerrors.NotFound, "unknown or already-terminal order").WithDetails(op.OrderID)
	}
	if existing.Owner != owner {
		return BulkOpResult{}, xerrors.New(xerrors.Forbidden, "not the order owner").WithDetails(op.OrderID)
	}

	req := admission.Request{Side: existing.Side, Price: op.NewPrice, Quantity: op.NewQuantity, ExecutionType: domain.GTC, Contract: contract}
	shadow.Remove(op.OrderID)
	if err := e.bulkCheckAdmission(plan, shadow, req, owner); err != nil {
		shadow.Insert(existing)
		return BulkOpResult{}, err
	}

	filledSoFar := existing.FilledQuantity()
	existing.Price = op.NewPrice
	existing.Quantity = op.NewQuantity
	existing.OriginalQuantity = filledSoFar + op.NewQuantity
	existing.Status = domain.StatusActive
	existing.ExecutionType = domain.GTC

	res := matchengine.Run(shadow, existing, matchDeps(e))
	e.applyBulkResult(plan, contract, res)
	if existing.Status == domain.StatusActive {
		plan.deltas = append(plan.deltas, eventbus.BookDelta{Op: eventbus.DeltaModify, Contract: contract, Order: *existing})
	}
	return BulkOpResult{Type: BulkModify, OrderID: existing.OrderID, Status: existing.Status, Quantity: existing.FilledQuantity()}, nil
}

func (e *Engine) simulateCancel(plan *bulkPlan, shadow *book.Book, owner string, op BulkOp) (BulkOpResult, *xerrors.Error) {
	existing, ok := shadow.Get(op.OrderID)
	if !ok {
		return BulkOpResult{}, xerrors.New(xerrors.NotFound, "unknown or already-terminal order").WithDetails(op.OrderID)
	}
	if existing.Owner != owner {
		return BulkOpResult{}, xerrors.New(xerrors.Forbidden, "not the order owner").WithDetails(op.OrderID)
	}

	shadow.Remove(op.OrderID)
	filled := existing.FilledQuantity()
	existing.Status = domain.StatusCancelled
	existing.Quantity = 0 // terminal orders carry quantity 0 (§3 invariant)
	plan.deltas = append(plan.deltas, eventbus.BookDelta{Op: eventbus.DeltaRemove, Contract: existing.Contract, Order: *existing})
	plan.reports = append(plan.reports, eventbus.ExecutionReport{
		Owner: existing.Owner, OrderID: existing.OrderID, Status: existing.Status,
		FilledQuantity: filled, Price: existing.Price, Quantity: existing.Quantity,
	})
	return BulkOpResult{Type: BulkCancel, OrderID: existing.OrderID, Status: existing.Status}, nil
}

func (e *Engine) applyBulkResult(plan *bulkPlan, contract domain.Contract, res matchengine.Result) {
	for _, t := range res.Trades {
		plan.trades = append(plan.trades, t)
		plan.balanceOf[t.BuyerID] -= t.Price * t.Quantity
		plan.balanceOf[t.SellerID] += t.Price * t.Quantity
	}
	plan.deltas = append(plan.deltas, res.Deltas...)
	plan.reports = append(plan.reports, res.Reports...)
}

// bulkCheckAdmission runs the four gates against the shadow book for req's
// contract and against potential balance computed across ALL contracts:
// shadow books already touched by this batch, plus untouched real books,
// plus the batch's own staged balance deltas (§4.5's "observe effects of
// all previous staged ops").
func (e *Engine) bulkCheckAdmission(plan *bulkPlan, shadow *book.Book, req admission.Request, submitter string) *xerrors.Error {
	if err := admission.CheckShape(req); err != nil {
		return err
	}
	if err := admission.CheckWindow(e.clk.NowMillis(), req.Contract, e.window.PreWindowDays, e.window.PostWindowSec); err != nil {
		return err
	}
	if err := admission.CheckSelfMatch(shadow, submitter, req.Side, req.Price); err != nil {
		return err
	}

	newCommitment := (&domain.Order{Side: req.Side, Price: req.Price, Quantity: req.Quantity}).SignedCommitment()
	balance := e.ledger.Balance(submitter) + plan.balanceOf[submitter]
	active := e.bulkActiveOrdersByUser(plan, submitter)
	collateral := e.ledger.CollateralLimit(submitter)
	if err := admission.CheckCollateral(balance, active, collateral, newCommitment); err != nil {
		return err
	}
	return nil
}

func (e *Engine) bulkActiveOrdersByUser(plan *bulkPlan, user string) []*domain.Order {
	var out []*domain.Order
	for contract, b := range e.books {
		if _, touched := plan.shadowBooks[contract]; touched {
			continue
		}
		for _, o := range append(append([]*domain.Order(nil), b.Bids()...), b.Asks()...) {
			if o.Owner == user {
				out = append(out, o)
			}
		}
	}
	for _, sb := range plan.shadowBooks {
		for _, o := range append(append([]*domain.Order(nil), sb.Bids()...), sb.Asks()...) {
			if o.Owner == user {
				out = append(out, o)
			}
		}
	}
	return out
}
