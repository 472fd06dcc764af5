package marketd

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/goether"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var (
	testOwner      = common.HexToAddress("0x0000000000000000000000000000000000000A11")
	testMarketAddr = common.HexToAddress("0x0000000000000000000000000000000000000C01")

	// deterministic secp256k1 keys for the settlement parties
	testSellerKey = "0000000000000000000000000000000000000000000000000000000000000002"
	testBuyerKey  = "0000000000000000000000000000000000000000000000000000000000000003"
)

func newTestMarket(t *testing.T) *Marketplace {
	store, err := NewStore(t.TempDir())
	assert.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return NewCore(store, testOwner, testMarketAddr)
}

func newTestSigner(t *testing.T, priv string) *goether.Signer {
	signer, err := goether.NewSigner(priv)
	assert.NoError(t, err)
	return signer
}

func registerParty(t *testing.T, m *Marketplace, addr common.Address) {
	assert.NoError(t, m.RegisterUser(testOwner, addr, uuid.NewString()))
}

func signSettle(t *testing.T, signer *goether.Signer, scriptHash common.Hash, seller common.Address, value *big.Int) Signature {
	settleHash := SettleHash(testMarketAddr, scriptHash, seller, value)
	raw, err := signer.SignMsg(settleHash.Bytes())
	assert.NoError(t, err)
	sig, err := SignatureFromBytes(raw)
	assert.NoError(t, err)
	return sig
}

// full settlement round trip: list, fund, attest, confirm, then replay
func TestMarketplaceEndToEnd(t *testing.T) {
	m := newTestMarket(t)
	sellerSigner := newTestSigner(t, testSellerKey)
	buyerSigner := newTestSigner(t, testBuyerKey)
	seller := sellerSigner.Address
	buyer := buyerSigner.Address
	price := big.NewInt(50)

	assert.Equal(t, testOwner, m.Owner())

	// seller onboards and lists one item at price 50
	registerParty(t, m, seller)
	registerParty(t, m, buyer)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "air quality feed"))
	assert.NoError(t, m.SetPrice(seller, price))
	index, err := m.UpdateData(seller, "DVZAPMBOOJHQKFQUUYCXKA9DMOLQABGKHSZCAPYLPQSQK9BGNGMOY9JHHNRRGNHGBUUPWYWJM9QNEISFI", `{"device_id":"8CE7A927","app":"PM25"}`)
	assert.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.NoError(t, m.SetPurchaseOpen(seller))

	// buyer funds the purchase
	assert.NoError(t, m.Deposit(testOwner, buyer, big.NewInt(100)))
	scriptHash, err := m.PurchaseData(buyer, seller, "DVZAPMBOOJHQKFQUUYCXKA9DMOLQABGKHSZCAPYLPQSQK9BGNGMOY9JHHNRRGNHGBUUPWYWJM9QNEISFI", price)
	assert.NoError(t, err)

	rec, err := m.EscrowOf(scriptHash)
	assert.NoError(t, err)
	assert.Equal(t, "funded", rec.Status.String())
	buyerBalance, _ := m.BalanceOf(buyer)
	assert.Equal(t, "50", buyerBalance.String())
	poolBalance, _ := m.BalanceOf(testMarketAddr)
	assert.Equal(t, "50", poolBalance.String())

	// seller attests delivery
	sellerSig := signSettle(t, sellerSigner, scriptHash, seller, price)
	assert.NoError(t, m.Finalize(scriptHash, sellerSig, "0x1da44b586eb0729ff70a73c326926f6ed5a25f5b056e7f47fbc6e58d86871655"))
	rec, err = m.EscrowOf(scriptHash)
	assert.NoError(t, err)
	assert.Equal(t, "finalized", rec.Status.String())

	// buyer confirms, funds release to the seller
	buyerSig := signSettle(t, buyerSigner, scriptHash, seller, price)
	assert.NoError(t, m.Execute(scriptHash, buyerSig))
	sellerBalance, _ := m.BalanceOf(seller)
	assert.Equal(t, "50", sellerBalance.String())
	poolBalance, _ = m.BalanceOf(testMarketAddr)
	assert.Equal(t, "0", poolBalance.String())

	// replaying either signed step against the terminal record fails
	assert.ErrorIs(t, m.Execute(scriptHash, buyerSig), ErrInvalidState)
	assert.ErrorIs(t, m.Finalize(scriptHash, sellerSig, ""), ErrInvalidState)
}

func TestMarketplaceSubscriptionFlow(t *testing.T) {
	m := newTestMarket(t)
	sellerSigner := newTestSigner(t, testSellerKey)
	buyerSigner := newTestSigner(t, testBuyerKey)
	seller := sellerSigner.Address
	buyer := buyerSigner.Address

	t0 := time.Unix(1700000000, 0)
	m.now = func() time.Time { return t0 }

	registerParty(t, m, seller)
	registerParty(t, m, buyer)
	assert.NoError(t, m.RegisterShop(testOwner, seller, "sensor shop"))
	assert.NoError(t, m.SetSubscribePrice(seller, big.NewInt(2)))
	_, err := m.UpdateData(seller, "PRMLL9QRDZAYUBFDIZHLHSER99OCFZLBPHHSOZMALTWDCCZUFKQFQMQDDVYLQTRPHKLFSUPWMECMIETIU", "{}")
	assert.NoError(t, err)

	// no entitlement yet
	err = m.PurchaseBySubscription(buyer, seller, "PRMLL9QRDZAYUBFDIZHLHSER99OCFZLBPHHSOZMALTWDCCZUFKQFQMQDDVYLQTRPHKLFSUPWMECMIETIU")
	assert.ErrorIs(t, err, ErrSubscriptionInvalid)

	assert.NoError(t, m.Deposit(testOwner, buyer, big.NewInt(48)))
	assert.NoError(t, m.SubscribeShop(buyer, seller, 24, big.NewInt(48)))

	// access under the entitlement creates no escrow record and moves no value
	assert.NoError(t, m.PurchaseBySubscription(buyer, seller, "PRMLL9QRDZAYUBFDIZHLHSER99OCFZLBPHHSOZMALTWDCCZUFKQFQMQDDVYLQTRPHKLFSUPWMECMIETIU"))
	buyerBalance, _ := m.BalanceOf(buyer)
	assert.Equal(t, "0", buyerBalance.String())
	sellerBalance, _ := m.BalanceOf(seller)
	assert.Equal(t, "48", sellerBalance.String())
	poolBalance, _ := m.BalanceOf(testMarketAddr)
	assert.Equal(t, "0", poolBalance.String())
}
