package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/clock"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/ledger"
	"github.com/faytonn/clobx/internal/snapshot"
)

func testEngine(t *testing.T) (*Engine, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	bus := eventbus.New(16, zap.NewNop())
	snap, err := snapshot.NewWriter("", zap.NewNop())
	require.NoError(t, err)
	e := New(mock, zap.NewNop(), bus, snap, WindowParams{PreWindowDays: 15, PostWindowSec: 60}, "password123")
	return e, mock
}

func openContract() domain.Contract {
	return domain.Contract{DeliveryStart: 1000 * domain.HourMillis, DeliveryEnd: 1001 * domain.HourMillis}
}

func register(t *testing.T, e *Engine, username, password string) string {
	t.Helper()
	require.Nil(t, e.Register(username, password))
	token, err := e.Login(username, password)
	require.Nil(t, err)
	return token
}

// S1 — price-time priority end to end through the engine.
func TestEnginePriceTimePriority(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tokA := register(t, e, "alice", "password")
	tokB := register(t, e, "bob", "password")
	tokC := register(t, e, "carol", "password")

	outA, err := e.SubmitOrder(tokA, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 10, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)
	mock.Advance(1)
	outB, err := e.SubmitOrder(tokB, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 10, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	outC, err := e.SubmitOrder(tokC, SubmitOrderRequest{Side: domain.Buy, Price: 100, Quantity: 15, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)
	assert.Equal(t, domain.StatusFilled, outC.Status)
	assert.Equal(t, int64(15), outC.FilledQuantity)

	mine, err := e.MyOrders(tokB)
	require.Nil(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(5), mine[0].Quantity)

	_ = outA
	trades := e.Trades(c)
	require.Len(t, trades, 2)
	assert.Equal(t, int64(10), trades[0].Quantity)
}

// S3 — self-match is rejected wholesale.
func TestEngineSelfMatchRejected(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "dave", "password")
	_, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 10, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	_, err2 := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Buy, Price: 100, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.NotNil(t, err2)
	assert.Equal(t, 412, err2.StatusCode())
}

// S4 — collateral gate blocks a liability-increasing order beyond limit.
func TestEngineCollateralGate(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "erin", "password")
	require.Nil(t, e.SetCollateral("password123", "erin", 500))

	_, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Buy, Price: 100, Quantity: 10, ExecutionType: domain.GTC, Contract: c})
	require.NotNil(t, err)
	assert.Equal(t, 402, err.StatusCode())

	bal, berr := e.Balance(tok)
	require.Nil(t, berr)
	assert.Equal(t, int64(500), bal.CollateralLimit)
	assert.Equal(t, int64(0), bal.PotentialBalance)
}

func TestEngineBalanceUnlimitedByDefault(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "frank", "password")
	bal, err := e.Balance(tok)
	require.Nil(t, err)
	assert.Equal(t, ledger.Unlimited, bal.CollateralLimit)
}

// Cancel is idempotent at a terminal state: cancelling twice 404s.
func TestEngineCancelIdempotentAtTerminal(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "gail", "password")
	out, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Buy, Price: 100, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	require.Nil(t, e.CancelOrder(tok, out.OrderID))
	err2 := e.CancelOrder(tok, out.OrderID)
	require.NotNil(t, err2)
	assert.Equal(t, 404, err2.StatusCode())
}

func TestEngineModifyOrderReAdmits(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tokSeller := register(t, e, "heidi", "password")
	out, err := e.SubmitOrder(tokSeller, SubmitOrderRequest{Side: domain.Sell, Price: 110, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	modOut, merr := e.ModifyOrder(tokSeller, out.OrderID, 90, 5)
	require.Nil(t, merr)

	tokBuyer := register(t, e, "ivan", "password")
	buyOut, berr := e.SubmitOrder(tokBuyer, SubmitOrderRequest{Side: domain.Buy, Price: 90, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, berr)
	assert.Equal(t, domain.StatusFilled, buyOut.Status)

	_ = modOut
}

// Changing a password invalidates every previously issued token.
func TestEnginePasswordChangeInvalidatesToken(t *testing.T) {
	e, _ := testEngine(t)
	tok := register(t, e, "judy", "oldpass")

	require.Nil(t, e.ChangePassword("judy", "oldpass", "newpass"))

	_, err := e.MyOrders(tok)
	require.NotNil(t, err)
	assert.Equal(t, 401, err.StatusCode())
}

func TestEngineDNASubmitAndLogin(t *testing.T) {
	e, _ := testEngine(t)
	require.Nil(t, e.Register("ken", "password"))
	require.Nil(t, e.DNASubmit("ken", "password", "ACGACGACG"))

	tok, err := e.DNALogin("ken", "ACGACGACG")
	require.Nil(t, err)
	assert.NotEmpty(t, tok)
}

func TestEngineLoadSnapshotRestoresUsersAndActiveOrders(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "liam", "password")
	out, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	e.mu.Lock()
	state := e.persistSnapshotLocked()
	e.mu.Unlock()

	e2, mock2 := testEngine(t)
	e2.LoadSnapshot(&state)
	mock2.Set(c.DeliveryStart - 100_000)

	view := e2.GetBook(c)
	require.Len(t, view.Asks, 1)
	assert.Equal(t, out.OrderID, view.Asks[0].OrderID)

	_, loginErr := e2.Login("liam", "password")
	require.Nil(t, loginErr)
}

// MyOrders returns the caller's resting orders newest-created first.
func TestEngineMyOrdersNewestFirst(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "maya", "password")
	first, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 1, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)
	mock.Advance(1)
	second, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Sell, Price: 101, Quantity: 1, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	mine, merr := e.MyOrders(tok)
	require.Nil(t, merr)
	require.Len(t, mine, 2)
	assert.Equal(t, second.OrderID, mine[0].OrderID)
	assert.Equal(t, first.OrderID, mine[1].OrderID)
}

// MyTrades and Trades are scoped to the queried contract.
func TestEngineTradesScopedToContract(t *testing.T) {
	e, mock := testEngine(t)
	c1 := openContract()
	c2 := domain.Contract{DeliveryStart: c1.DeliveryStart + domain.HourMillis, DeliveryEnd: c1.DeliveryEnd + domain.HourMillis}
	mock.Set(c1.DeliveryStart - 100_000)

	tokA := register(t, e, "noah", "password")
	tokB := register(t, e, "olive", "password")
	_, err := e.SubmitOrder(tokA, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 1, ExecutionType: domain.GTC, Contract: c1})
	require.Nil(t, err)
	_, err = e.SubmitOrder(tokB, SubmitOrderRequest{Side: domain.Buy, Price: 100, Quantity: 1, ExecutionType: domain.GTC, Contract: c1})
	require.Nil(t, err)

	assert.Len(t, e.Trades(c1), 1)
	assert.Empty(t, e.Trades(c2))

	mine, merr := e.MyTrades(tokA, c1)
	require.Nil(t, merr)
	require.Len(t, mine, 1)
	assert.Equal(t, "seller", mine[0].Role)
	assert.Equal(t, "olive", mine[0].Counterparty)

	assert.Empty(t, mustMyTrades(t, e, tokA, c2))
}

func mustMyTrades(t *testing.T, e *Engine, token string, c domain.Contract) []MyTradeView {
	t.Helper()
	out, err := e.MyTrades(token, c)
	require.Nil(t, err)
	return out
}

// S6 — a book read outside the trading window comes back empty even
// though the contract in fact holds a resting order placed while the
// window was open.
func TestEngineGetBookOutsideWindowReturnsEmpty(t *testing.T) {
	e, mock := testEngine(t)
	c := openContract()
	mock.Set(c.DeliveryStart - 100_000)

	tok := register(t, e, "paul", "password")
	_, err := e.SubmitOrder(tok, SubmitOrderRequest{Side: domain.Sell, Price: 100, Quantity: 5, ExecutionType: domain.GTC, Contract: c})
	require.Nil(t, err)

	view := e.GetBook(c)
	require.Len(t, view.Asks, 1)

	mock.Set(c.DeliveryStart + 1_000)
	empty := e.GetBook(c)
	assert.Empty(t, empty.Bids)
	assert.Empty(t, empty.Asks)
}
