// Package admission implements the four admission gates (C6, §4.3),
// evaluated strictly in order; the first failing gate's error is
// returned and no state is touched.
package admission

import (
	"github.com/faytonn/clobx/internal/book"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// Request is the admission input for a new or re-admitted order.
type Request struct {
	Side          domain.Side
	Price         int64
	Quantity      int64
	ExecutionType domain.ExecutionType
	Contract      domain.Contract
}

// CheckShape is gate 1: structural validity (§4.3.1).
func CheckShape(r Request) *xerrors.Error {
	if r.Side != domain.Buy && r.Side != domain.Sell {
		return xerrors.New(xerrors.BadRequest, "side must be buy or sell")
	}
	if r.Quantity <= 0 {
		return xerrors.New(xerrors.BadRequest, "quantity must be positive")
	}
	switch r.ExecutionType {
	case domain.GTC, domain.IOC, domain.FOK:
	default:
		return xerrors.New(xerrors.BadRequest, "unknown execution_type")
	}
	if !r.Contract.Valid() {
		return xerrors.New(xerrors.BadRequest, "contract must be hour-aligned and one hour wide")
	}
	return nil
}

// CheckWindow is gate 2: trading-window enforcement (§4.3.2).
func CheckWindow(now int64, c domain.Contract, preWindowDays, postWindowSec int) *xerrors.Error {
	preWindowMs := int64(preWindowDays) * 86_400_000
	postWindowMs := int64(postWindowSec) * 1000
	windowStart := c.DeliveryStart - preWindowMs
	windowEnd := c.DeliveryStart - postWindowMs

	if now < windowStart {
		return xerrors.New(xerrors.TooEarly, "contract not yet open for trading")
	}
	if now > windowEnd {
		return xerrors.New(xerrors.UnavailableForLegal, "contract trading window has closed")
	}
	return nil
}

// CheckSelfMatch is gate 3: reject the whole incoming order if the
// opposite book holds any crossable order owned by submitter (§4.3.3).
// This is evaluated against the full opposite-side depth, not just the
// top, because the engine never reorders to skip a self order.
func CheckSelfMatch(b *book.Book, submitter string, side domain.Side, price int64) *xerrors.Error {
	var resting []*domain.Order
	if side == domain.Buy {
		resting = b.Asks()
	} else {
		resting = b.Bids()
	}
	for _, o := range resting {
		if !book.Crosses(side, price, o) {
			break
		}
		if o.Owner == submitter {
			return xerrors.New(xerrors.PreconditionFailed, "self-match would occur")
		}
	}
	return nil
}

// CheckCollateral is gate 4: only evaluated when the new order would
// reduce the submitter's potential balance (§4.3.4).
func CheckCollateral(balance int64, activeOrders []*domain.Order, collateralLimit int64, newCommitment int64) *xerrors.Error {
	if newCommitment >= 0 {
		// Not liability-increasing: a buy at non-positive price, or a
		// sell at non-negative price, never reduces potential balance.
		return nil
	}
	potential := balance
	for _, o := range activeOrders {
		potential += o.SignedCommitment()
	}
	if potential+newCommitment < -collateralLimit {
		return xerrors.New(xerrors.InsufficientCollateral, "order would breach collateral limit")
	}
	return nil
}
