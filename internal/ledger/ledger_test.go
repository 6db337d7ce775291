package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faytonn/clobx/internal/domain"
)

func TestApplyUpdatesBalances(t *testing.T) {
	l := New()
	l.Apply(domain.Trade{BuyerID: "alice", SellerID: "bob", Price: 100, Quantity: 5, Source: domain.SourceV2})
	assert.Equal(t, int64(-500), l.Balance("alice"))
	assert.Equal(t, int64(500), l.Balance("bob"))
	assert.Len(t, l.Trades(), 1)
}

func TestCollateralDefaultsUnlimited(t *testing.T) {
	l := New()
	assert.Equal(t, Unlimited, l.CollateralLimit("alice"))
	l.SetCollateralLimit("alice", 1000)
	assert.Equal(t, int64(1000), l.CollateralLimit("alice"))
}

func TestPotentialBalance(t *testing.T) {
	orders := []*domain.Order{
		{Side: domain.Buy, Price: 100, Quantity: 2},  // -200
		{Side: domain.Sell, Price: 50, Quantity: 3},  // +150
	}
	assert.Equal(t, int64(-50), PotentialBalance(0, orders))
}

func TestRebuildFromV2TradesIgnoresV1(t *testing.T) {
	l := New()
	trades := []domain.Trade{
		{BuyerID: "a", SellerID: "b", Price: 10, Quantity: 1, Source: domain.SourceV1},
		{BuyerID: "a", SellerID: "b", Price: 10, Quantity: 2, Source: domain.SourceV2},
	}
	l.RebuildFromV2Trades(trades)
	assert.Equal(t, int64(-20), l.Balance("a"))
	assert.Len(t, l.Trades(), 1)
}

func TestV2TradesFilters(t *testing.T) {
	l := New()
	l.Apply(domain.Trade{BuyerID: "a", SellerID: "b", Price: 1, Quantity: 1, Source: domain.SourceV1})
	l.Apply(domain.Trade{BuyerID: "a", SellerID: "b", Price: 1, Quantity: 1, Source: domain.SourceV2})
	assert.Len(t, l.V2Trades(), 1)
	assert.Len(t, l.Trades(), 2)
}

func TestExportImportCollateralRoundTrips(t *testing.T) {
	l := New()
	l.SetCollateralLimit("alice", 1000)
	l.SetCollateralLimit("bob", 2000)

	exported := l.ExportCollateral()
	assert.Equal(t, int64(1000), exported["alice"])
	assert.Equal(t, int64(2000), exported["bob"])

	fresh := New()
	fresh.ImportCollateral(exported)
	assert.Equal(t, int64(1000), fresh.CollateralLimit("alice"))
	assert.Equal(t, int64(2000), fresh.CollateralLimit("bob"))
	assert.Equal(t, Unlimited, fresh.CollateralLimit("carol"))
}
