// Package snapshot implements the durable mirror of engine state (C9,
// §4.7): users, DNA samples, collateral limits, V2 orders, and V2
// trades, written atomic-replace (temp file + rename) after every
// state-changing commit. The writer is wrapped in a circuit breaker so a
// broken disk degrades to "durability lost" instead of retrying every
// commit, and is dispatched through a single-worker pool so a slow
// write never serializes behind the engine's critical section while
// still applying in commit order.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/panjf2000/ants/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const fileName = "exchange_state.json"

// PersistedUser is the on-disk shape of one user account.
type PersistedUser struct {
	PasswordHash []byte   `json:"password_hash"`
	DNASamples   []string `json:"dna_samples"`
}

// PersistedOrder is the on-disk shape of one V2 order. The engine writes
// only the orders resting in its books, so every persisted order is
// ACTIVE; filled and cancelled orders are not kept across a restart.
type PersistedOrder struct {
	OrderID          string `json:"order_id"`
	Owner            string `json:"owner"`
	DeliveryStart    int64  `json:"delivery_start"`
	DeliveryEnd      int64  `json:"delivery_end"`
	Side             string `json:"side"`
	Price            int64  `json:"price"`
	Quantity         int64  `json:"quantity"`
	OriginalQuantity int64  `json:"original_quantity"`
	Status           string `json:"status"`
	ExecutionType    string `json:"execution_type"`
	CreatedAt        int64  `json:"created_at"`
}

// PersistedTrade is the on-disk shape of one V2 trade.
type PersistedTrade struct {
	TradeID       string `json:"trade_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	Price         int64  `json:"price"`
	Quantity      int64  `json:"quantity"`
	Timestamp     int64  `json:"timestamp"`
	DeliveryStart int64  `json:"delivery_start"`
	DeliveryEnd   int64  `json:"delivery_end"`
}

// State is the full persisted document. Seq is not part of the on-disk
// shape — it orders concurrent SaveAsync calls so a stale write can
// never clobber a newer one (§4.7).
type State struct {
	Users      map[string]PersistedUser `json:"users"`
	Collateral map[string]int64         `json:"collateral"`
	Orders     []PersistedOrder         `json:"orders"`
	Trades     []PersistedTrade         `json:"trades"`
	Seq        int64                    `json:"-"`
}

// Writer performs atomic-replace writes, wrapped in a circuit breaker and
// dispatched through a single-worker pool so writes apply in submission
// order; a sequence-number guard on top of that makes the final file
// reflect the most recent commit even if a write is ever reordered.
type Writer struct {
	dir     string
	logger  *zap.Logger
	pool    *ants.Pool
	breaker *gobreaker.CircuitBreaker

	seqMu       sync.Mutex
	lastWritten int64
}

// NewWriter returns a Writer rooted at dir. dir == "" disables
// persistence entirely (§6: PERSISTENT_DIR unset).
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	var pool *ants.Pool
	if dir != "" {
		p, err := ants.NewPool(1, ants.WithNonblocking(true))
		if err != nil {
			return nil, fmt.Errorf("snapshot: create worker pool: %w", err)
		}
		pool = p
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "snapshot-writer",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Writer{dir: dir, logger: logger, pool: pool, breaker: breaker, lastWritten: -1}, nil
}

// Enabled reports whether a persistence directory was configured.
func (w *Writer) Enabled() bool { return w.dir != "" }

// SaveAsync schedules a write of state on the worker pool and returns
// immediately; per §7, snapshot write failures are swallowed — the
// service stays live even when durability is degraded. The single-worker
// pool applies writes in submission order, and the sequence guard in
// save additionally drops any write whose state is older than one
// already on disk, so a stale commit can never clobber a newer one.
func (w *Writer) SaveAsync(state State) {
	if !w.Enabled() {
		return
	}
	task := func() {
		if _, err := w.breaker.Execute(func() (any, error) {
			return nil, w.save(state)
		}); err != nil {
			w.logger.Warn("snapshot write failed, durability degraded", zap.Error(err))
		}
	}
	if err := w.pool.Submit(task); err != nil {
		// Pool saturated or closed: run inline rather than drop a commit's
		// durability entirely, since this still happens outside the
		// engine's critical section.
		task()
	}
}

func (w *Writer) save(state State) error {
	// Held for the whole write so the seq check, the rename, and the
	// lastWritten update happen as one step even when an inline fallback
	// write overlaps a pooled one.
	w.seqMu.Lock()
	defer w.seqMu.Unlock()
	if state.Seq <= w.lastWritten {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	path := filepath.Join(w.dir, fileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}

	w.lastWritten = state.Seq
	return nil
}

// Load reads the snapshot file if present; a missing file is not an
// error (first run, or persistence disabled for this run).
func Load(dir string) (*State, error) {
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &state, nil
}

// Close releases the worker pool.
func (w *Writer) Close() {
	if w.pool != nil {
		w.pool.Release()
	}
}
