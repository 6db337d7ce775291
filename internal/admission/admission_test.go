package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faytonn/clobx/internal/book"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/ledger"
	"github.com/faytonn/clobx/pkg/xerrors"
)

func contract() domain.Contract {
	return domain.Contract{DeliveryStart: 3_600_000 * 1000, DeliveryEnd: 3_600_000 * 1001}
}

func TestCheckShape(t *testing.T) {
	good := Request{Side: domain.Buy, Quantity: 1, ExecutionType: domain.GTC, Contract: contract()}
	assert.Nil(t, CheckShape(good))

	bad := good
	bad.Quantity = 0
	err := CheckShape(bad)
	require.NotNil(t, err)
	assert.Equal(t, xerrors.BadRequest, err.Kind)

	badContract := good
	badContract.Contract = domain.Contract{DeliveryStart: 1, DeliveryEnd: 3_600_001}
	err = CheckShape(badContract)
	require.NotNil(t, err)
	assert.Equal(t, xerrors.BadRequest, err.Kind)
}

func TestCheckWindow(t *testing.T) {
	c := contract()
	preWindowDays, postWindowSec := 15, 60

	tooEarly := c.DeliveryStart - 16*86_400_000
	err := CheckWindow(tooEarly, c, preWindowDays, postWindowSec)
	require.NotNil(t, err)
	assert.Equal(t, xerrors.TooEarly, err.Kind)

	tooLate := c.DeliveryStart - 30_000
	err = CheckWindow(tooLate, c, preWindowDays, postWindowSec)
	require.NotNil(t, err)
	assert.Equal(t, xerrors.UnavailableForLegal, err.Kind)

	ok := c.DeliveryStart - 86_400_000
	assert.Nil(t, CheckWindow(ok, c, preWindowDays, postWindowSec))
}

func TestCheckSelfMatch(t *testing.T) {
	b := book.New(contract())
	b.Insert(&domain.Order{OrderID: "s1", Owner: "alice", Side: domain.Sell, Price: 100, Quantity: 5, CreatedAt: 1})

	err := CheckSelfMatch(b, "alice", domain.Buy, 100)
	require.NotNil(t, err)
	assert.Equal(t, xerrors.PreconditionFailed, err.Kind)

	assert.Nil(t, CheckSelfMatch(b, "bob", domain.Buy, 100))
}

func TestCheckCollateral(t *testing.T) {
	buy := domain.Order{Side: domain.Buy, Price: 600, Quantity: 2} // commitment -1200
	err := CheckCollateral(0, nil, 1000, buy.SignedCommitment())
	require.NotNil(t, err)
	assert.Equal(t, xerrors.InsufficientCollateral, err.Kind)

	ok := domain.Order{Side: domain.Buy, Price: 500, Quantity: 2} // commitment -1000
	assert.Nil(t, CheckCollateral(0, nil, 1000, ok.SignedCommitment()))
}

func TestCheckCollateralSkippedWhenNotLiabilityIncreasing(t *testing.T) {
	sell := domain.Order{Side: domain.Sell, Price: 100, Quantity: 100} // commitment +10000, never a liability
	assert.Nil(t, CheckCollateral(0, nil, 1, sell.SignedCommitment()))
}

func TestCheckCollateralUnlimited(t *testing.T) {
	buy := domain.Order{Side: domain.Buy, Price: 1_000_000, Quantity: 1_000_000}
	assert.Nil(t, CheckCollateral(0, nil, ledger.Unlimited, buy.SignedCommitment()))
}
