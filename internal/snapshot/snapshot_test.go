package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	state := State{
		Users: map[string]PersistedUser{
			"alice": {PasswordHash: []byte("hash"), DNASamples: []string{"ACG"}},
		},
		Collateral: map[string]int64{"alice": 1000},
		Orders: []PersistedOrder{
			{OrderID: "o1", Owner: "alice", Status: "ACTIVE", Quantity: 5},
		},
		Trades: []PersistedTrade{
			{TradeID: "t1", BuyerID: "alice", SellerID: "bob", Price: 100, Quantity: 5},
		},
	}

	require.NoError(t, w.save(state))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.Users["alice"].DNASamples, loaded.Users["alice"].DNASamples)
	assert.Equal(t, int64(1000), loaded.Collateral["alice"])
	require.Len(t, loaded.Orders, 1)
	assert.Equal(t, "o1", loaded.Orders[0].OrderID)
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadDisabledReturnsNil(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveAsyncEventuallyWritesFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	w.SaveAsync(State{Users: map[string]PersistedUser{}})

	require.Eventually(t, func() bool {
		loaded, err := Load(dir)
		return err == nil && loaded != nil
	}, time.Second, 10*time.Millisecond)
}

func TestDisabledWriterSaveAsyncNoop(t *testing.T) {
	w, err := NewWriter("", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, w.Enabled())
	assert.NotPanics(t, func() { w.SaveAsync(State{}) })
}
