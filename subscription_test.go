package marketd

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setupSubscriptionShop(t *testing.T) (*Marketplace, time.Time) {
	m := newTestMarket(t)
	t0 := time.Unix(1700000000, 0)
	m.now = func() time.Time { return t0 }

	seller, buyer := testAddr(0), testAddr(1)
	registerParty(t, m, seller)
	registerParty(t, m, buyer)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "info"))
	assert.NoError(t, m.SetSubscribePrice(seller, big.NewInt(2)))
	_, err := m.UpdateData(seller, mamRoot1, "{}")
	assert.NoError(t, err)
	assert.NoError(t, m.Deposit(testOwner, buyer, big.NewInt(1000)))
	return m, t0
}

func TestSubscribeShopExactPayment(t *testing.T) {
	m, _ := setupSubscriptionShop(t)
	seller, buyer := testAddr(0), testAddr(1)

	// 24 units at rate 2 costs exactly 48
	assert.ErrorIs(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(47)), ErrInvalidAmount)
	assert.ErrorIs(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(49)), ErrInvalidAmount)
	assert.ErrorIs(t, m.SubscribeShop(buyer, seller, 0, big.NewInt(0)), ErrInvalidAmount)
	assert.NoError(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(48)))

	buyerBalance, _ := m.BalanceOf(buyer)
	assert.Equal(t, "952", buyerBalance.String())
	sellerBalance, _ := m.BalanceOf(seller)
	assert.Equal(t, "48", sellerBalance.String())

	assert.ErrorIs(t, m.SubscribeShop(testAddr(7), seller, 1, big.NewInt(2)), ErrNotFound)
	assert.ErrorIs(t, m.SubscribeShop(buyer, testAddr(7), 1, big.NewInt(2)), ErrNotFound)
}

func TestSubscriptionExpiry(t *testing.T) {
	m, t0 := setupSubscriptionShop(t)
	seller, buyer := testAddr(0), testAddr(1)

	valid, err := m.IsSubscriptionValid(buyer, seller)
	assert.NoError(t, err)
	assert.False(t, valid)

	assert.NoError(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(48)))

	entry, err := m.SubscriptionOf(buyer, seller)
	assert.NoError(t, err)
	assert.Equal(t, t0.Add(24*time.Hour).Unix(), entry.ExpiresAt)

	// valid strictly while now < expiresAt
	m.now = func() time.Time { return t0.Add(24*time.Hour - time.Second) }
	valid, _ = m.IsSubscriptionValid(buyer, seller)
	assert.True(t, valid)

	m.now = func() time.Time { return t0.Add(24 * time.Hour) }
	valid, _ = m.IsSubscriptionValid(buyer, seller)
	assert.False(t, valid)

	m.now = func() time.Time { return t0.Add(25 * time.Hour) }
	valid, _ = m.IsSubscriptionValid(buyer, seller)
	assert.False(t, valid)
}

// renewing replaces the remaining duration, it never stacks
func TestSubscribeReplacesNotAdds(t *testing.T) {
	m, t0 := setupSubscriptionShop(t)
	seller, buyer := testAddr(0), testAddr(1)

	assert.NoError(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(48)))

	// renew 12h in with a shorter window; the old expiry is discarded
	m.now = func() time.Time { return t0.Add(12 * time.Hour) }
	assert.NoError(t, m.SubscribeShop(buyer, seller, 2, big.NewInt(4)))

	entry, err := m.SubscriptionOf(buyer, seller)
	assert.NoError(t, err)
	assert.Equal(t, t0.Add(14*time.Hour).Unix(), entry.ExpiresAt)
}

func TestPurchaseBySubscription(t *testing.T) {
	m, t0 := setupSubscriptionShop(t)
	seller, buyer := testAddr(0), testAddr(1)

	assert.ErrorIs(t, m.PurchaseBySubscription(buyer, seller, mamRoot1), ErrSubscriptionInvalid)

	assert.NoError(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(48)))
	assert.NoError(t, m.PurchaseBySubscription(buyer, seller, mamRoot1))

	// unknown or withdrawn pointers are refused
	assert.ErrorIs(t, m.PurchaseBySubscription(buyer, seller, "UNKNOWN9ROOT"), ErrNotFound)
	assert.NoError(t, m.SetDataAvailability(testAddr(0), mamRoot1, false))
	assert.ErrorIs(t, m.PurchaseBySubscription(buyer, seller, mamRoot1), ErrNotFound)

	// the gate on per-item purchases does not apply to subscription access
	assert.NoError(t, m.SetDataAvailability(testAddr(0), mamRoot1, true))
	assert.NoError(t, m.SetPurchaseClose(testAddr(0)))
	assert.NoError(t, m.PurchaseBySubscription(buyer, seller, mamRoot1))

	// an expired entitlement stops access
	m.now = func() time.Time { return t0.Add(25 * time.Hour) }
	assert.ErrorIs(t, m.PurchaseBySubscription(buyer, seller, mamRoot1), ErrSubscriptionInvalid)
}
