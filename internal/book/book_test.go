package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faytonn/clobx/internal/domain"
)

func contract() domain.Contract {
	return domain.Contract{DeliveryStart: 3_600_000 * 100, DeliveryEnd: 3_600_000 * 101}
}

func TestInsertAndPeekPriceTimePriority(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "s1", Side: domain.Sell, Price: 100, Quantity: 10, CreatedAt: 1})
	b.Insert(&domain.Order{OrderID: "s2", Side: domain.Sell, Price: 100, Quantity: 5, CreatedAt: 2})
	b.Insert(&domain.Order{OrderID: "s3", Side: domain.Sell, Price: 99, Quantity: 3, CreatedAt: 3})

	top := b.PeekBestAsk()
	require.NotNil(t, top)
	assert.Equal(t, "s3", top.OrderID) // lowest price wins regardless of time
}

func TestInsertTimePriorityAtEqualPrice(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "a", Side: domain.Sell, Price: 100, Quantity: 10, CreatedAt: 2})
	b.Insert(&domain.Order{OrderID: "b", Side: domain.Sell, Price: 100, Quantity: 5, CreatedAt: 1})
	assert.Equal(t, "b", b.PeekBestAsk().OrderID)
}

func TestBidOrderingHighestFirst(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "b1", Side: domain.Buy, Price: 90, Quantity: 1, CreatedAt: 1})
	b.Insert(&domain.Order{OrderID: "b2", Side: domain.Buy, Price: 110, Quantity: 1, CreatedAt: 2})
	assert.Equal(t, "b2", b.PeekBestBid().OrderID)
}

func TestRemoveByID(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "x", Side: domain.Buy, Price: 1, Quantity: 1, CreatedAt: 1})
	assert.True(t, b.Remove("x"))
	assert.False(t, b.Remove("x"))
	assert.Nil(t, b.PeekBestBid())
}

func TestPopTopOppositeRemovesAndReturns(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "s1", Side: domain.Sell, Price: 100, Quantity: 5, CreatedAt: 1})
	popped := b.PopTopOpposite(domain.Buy)
	require.NotNil(t, popped)
	assert.Equal(t, "s1", popped.OrderID)
	assert.Nil(t, b.PeekBestAsk())
}

func TestCrosses(t *testing.T) {
	resting := &domain.Order{Price: 100}
	assert.True(t, Crosses(domain.Buy, 100, resting))
	assert.True(t, Crosses(domain.Buy, 101, resting))
	assert.False(t, Crosses(domain.Buy, 99, resting))
	assert.True(t, Crosses(domain.Sell, 100, resting))
	assert.False(t, Crosses(domain.Sell, 101, resting))
}

func TestBidsAsksSortedViewsDoNotMutateLiveBook(t *testing.T) {
	b := New(contract())
	b.Insert(&domain.Order{OrderID: "s1", Side: domain.Sell, Price: 101, Quantity: 1, CreatedAt: 1})
	b.Insert(&domain.Order{OrderID: "s2", Side: domain.Sell, Price: 100, Quantity: 1, CreatedAt: 2})

	asks := b.Asks()
	require.Len(t, asks, 2)
	assert.Equal(t, "s2", asks[0].OrderID)
	assert.Equal(t, "s1", asks[1].OrderID)

	// live book still intact after producing a read view
	assert.Equal(t, "s2", b.PeekBestAsk().OrderID)
}
