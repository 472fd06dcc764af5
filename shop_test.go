package marketd

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	mamRoot1 = "DVZAPMBOOJHQKFQUUYCXKA9DMOLQABGKHSZCAPYLPQSQK9BGNGMOY9JHHNRRGNHGBUUPWYWJM9QNEISFI"
	mamRoot2 = "PRMLL9QRDZAYUBFDIZHLHSER99OCFZLBPHHSOZMALTWDCCZUFKQFQMQDDVYLQTRPHKLFSUPWMECMIETIU"
)

func TestSetPrice(t *testing.T) {
	m := newTestMarket(t)
	seller := testAddr(0)
	registerParty(t, m, seller)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "info"))

	// only the shop owner may price the catalog
	assert.ErrorIs(t, m.SetPrice(testAddr(1), big.NewInt(50)), ErrNotFound)
	assert.ErrorIs(t, m.SetPrice(seller, big.NewInt(-1)), ErrInvalidAmount)
	assert.NoError(t, m.SetPrice(seller, big.NewInt(50)))
	assert.NoError(t, m.SetSubscribePrice(seller, big.NewInt(2)))

	profile, err := m.SellerData(seller)
	assert.NoError(t, err)
	assert.Equal(t, "50", profile.SinglePurchasePrice.String())
	assert.Equal(t, "2", profile.SubscribePerTimePrice.String())
}

func TestPurchaseGate(t *testing.T) {
	m := newTestMarket(t)
	seller := testAddr(0)
	registerParty(t, m, seller)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "info"))

	profile, _ := m.SellerData(seller)
	assert.False(t, profile.PurchasesOpen)

	assert.NoError(t, m.SetPurchaseOpen(seller))
	profile, _ = m.SellerData(seller)
	assert.True(t, profile.PurchasesOpen)

	assert.NoError(t, m.SetPurchaseClose(seller))
	profile, _ = m.SellerData(seller)
	assert.False(t, profile.PurchasesOpen)
}

func TestUpdateData(t *testing.T) {
	m := newTestMarket(t)
	seller := testAddr(0)
	registerParty(t, m, seller)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "info"))

	index, err := m.UpdateData(seller, mamRoot1, `{"app":"PM25"}`)
	assert.NoError(t, err)
	assert.Equal(t, 0, index)
	index, err = m.UpdateData(seller, mamRoot2, "{}")
	assert.NoError(t, err)
	assert.Equal(t, 1, index)

	// the pointer is the availability key, duplicates are rejected
	_, err = m.UpdateData(seller, mamRoot1, "{}")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	size, err := m.GetDataListSize(seller)
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	item, err := m.GetData(seller, 0)
	assert.NoError(t, err)
	assert.Equal(t, mamRoot1, item.MamRoot)
	assert.True(t, item.Available)

	_, err = m.GetData(seller, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetData(seller, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDataAvailability(t *testing.T) {
	m := newTestMarket(t)
	seller := testAddr(0)
	registerParty(t, m, seller)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "info"))
	_, err := m.UpdateData(seller, mamRoot1, "{}")
	assert.NoError(t, err)

	available, err := m.GetDataAvailability(seller, mamRoot1)
	assert.NoError(t, err)
	assert.True(t, available)

	// unknown pointers and unknown sellers answer false, never an error
	available, err = m.GetDataAvailability(seller, "UNKNOWN9ROOT")
	assert.NoError(t, err)
	assert.False(t, available)
	available, err = m.GetDataAvailability(testAddr(5), mamRoot1)
	assert.NoError(t, err)
	assert.False(t, available)

	// withdrawal is recoverable
	assert.ErrorIs(t, m.SetDataAvailability(seller, "UNKNOWN9ROOT", false), ErrNotFound)
	assert.NoError(t, m.SetDataAvailability(seller, mamRoot1, false))
	available, _ = m.GetDataAvailability(seller, mamRoot1)
	assert.False(t, available)
	assert.NoError(t, m.SetDataAvailability(seller, mamRoot1, true))
	available, _ = m.GetDataAvailability(seller, mamRoot1)
	assert.True(t, available)
}
