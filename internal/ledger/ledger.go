// Package ledger implements the per-user balance and append-only trade
// log (C3, §4.4), and the collateral envelope (§4.3 gate 4).
package ledger

import "github.com/faytonn/clobx/internal/domain"

// Ledger owns trades and balances; it is mutated only inside the
// engine's critical section.
type Ledger struct {
	balances   map[string]int64
	collateral map[string]int64 // absent key == unlimited
	trades     []domain.Trade
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[string]int64),
		collateral: make(map[string]int64),
	}
}

// Apply posts a trade's effect on buyer/seller balances and appends it
// to the immutable trade log (§4.4).
func (l *Ledger) Apply(t domain.Trade) {
	amount := t.Price * t.Quantity
	l.balances[t.BuyerID] -= amount
	l.balances[t.SellerID] += amount
	l.trades = append(l.trades, t)
}

// Balance returns user's current balance (0 if never traded).
func (l *Ledger) Balance(user string) int64 {
	return l.balances[user]
}

// Unlimited is the sentinel collateral value reported for a user with no
// configured collateral limit (§6 GET /balance).
const Unlimited = int64(1<<63 - 1)

// CollateralLimit returns the user's configured limit, or Unlimited if none.
func (l *Ledger) CollateralLimit(user string) int64 {
	limit, ok := l.collateral[user]
	if !ok {
		return Unlimited
	}
	return limit
}

// SetCollateralLimit sets user's collateral limit.
func (l *Ledger) SetCollateralLimit(user string, limit int64) {
	l.collateral[user] = limit
}

// ExportCollateral returns a copy of every configured (non-default)
// collateral limit, for the snapshot (§4.7).
func (l *Ledger) ExportCollateral() map[string]int64 {
	out := make(map[string]int64, len(l.collateral))
	for user, limit := range l.collateral {
		out[user] = limit
	}
	return out
}

// ImportCollateral replaces the ledger's configured collateral limits
// (used on restart, §4.7).
func (l *Ledger) ImportCollateral(limits map[string]int64) {
	l.collateral = make(map[string]int64, len(limits))
	for user, limit := range limits {
		l.collateral[user] = limit
	}
}

// PotentialBalance computes balance(u) + Σ signed_commitment(o) over the
// user's live ACTIVE orders, per §4.3 gate 4.
func PotentialBalance(balance int64, activeOrders []*domain.Order) int64 {
	potential := balance
	for _, o := range activeOrders {
		potential += o.SignedCommitment()
	}
	return potential
}

// Trades returns the full immutable trade log in append order.
func (l *Ledger) Trades() []domain.Trade {
	return l.trades
}

// V2Trades returns only the V2 subset, for the snapshot (§4.7).
func (l *Ledger) V2Trades() []domain.Trade {
	out := make([]domain.Trade, 0, len(l.trades))
	for _, t := range l.trades {
		if t.Source == domain.SourceV2 {
			out = append(out, t)
		}
	}
	return out
}

// RebuildFromV2Trades recomputes balances from scratch by replaying only
// V2 trades (§4.7 restart behavior: V1 state is non-durable).
func (l *Ledger) RebuildFromV2Trades(trades []domain.Trade) {
	l.balances = make(map[string]int64)
	l.trades = nil
	for _, t := range trades {
		if t.Source != domain.SourceV2 {
			continue
		}
		l.Apply(t)
	}
}
