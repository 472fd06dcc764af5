package marketd

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openmarket/marketd/schema"
	bolt "go.etcd.io/bbolt"
)

// one duration unit of a subscription
const subscribeTimeUnit = time.Hour

// SubscribeShop buys durationUnits of access to seller's catalog. Payment
// must match durationUnits * SubscribePerTimePrice exactly and goes to the
// seller immediately; subscription revenue is never escrowed. Renewing
// overwrites the prior entry, it does not stack remaining time.
func (m *Marketplace) SubscribeShop(buyer, seller common.Address, durationUnits int64, paidValue *big.Int) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	if durationUnits <= 0 || paidValue == nil || paidValue.Sign() < 0 {
		return ErrInvalidAmount
	}
	return m.store.Db.Update(func(tx *bolt.Tx) error {
		if !existUser(tx, buyer) {
			return ErrNotFound
		}
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		want := new(big.Int).Mul(shop.SubscribePerTimePrice, big.NewInt(durationUnits))
		if paidValue.Cmp(want) != 0 {
			return ErrInvalidAmount
		}
		if err := debitBalance(tx, buyer, paidValue); err != nil {
			return err
		}
		if err := creditBalance(tx, seller, paidValue); err != nil {
			return err
		}
		expiresAt := m.now().Add(time.Duration(durationUnits) * subscribeTimeUnit).Unix()
		return saveSubscription(tx, &schema.SubscriptionEntry{
			Buyer:     buyer,
			Seller:    seller,
			ExpiresAt: expiresAt,
		})
	})
}

// IsSubscriptionValid reports whether buyer currently holds a live
// entitlement to seller's catalog. Expired entries are never reaped, the
// check is purely a time comparison.
func (m *Marketplace) IsSubscriptionValid(buyer, seller common.Address) (bool, error) {
	valid := false
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		entry, err := getSubscription(tx, buyer, seller)
		if err != nil {
			if err == ErrNotFound {
				return nil
			}
			return err
		}
		valid = m.now().Unix() < entry.ExpiresAt
		return nil
	})
	return valid, err
}

// SubscriptionOf returns the raw entry for (buyer, seller).
func (m *Marketplace) SubscriptionOf(buyer, seller common.Address) (*schema.SubscriptionEntry, error) {
	entry := &schema.SubscriptionEntry{}
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		got, err := getSubscription(tx, buyer, seller)
		if err != nil {
			return err
		}
		*entry = *got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PurchaseBySubscription grants access to one catalog item under a live
// subscription. No escrow record is created and no value moves; the
// PurchasesOpen gate does not apply here.
func (m *Marketplace) PurchaseBySubscription(buyer, seller common.Address, mamRoot string) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	err := m.store.Db.Update(func(tx *bolt.Tx) error {
		entry, err := getSubscription(tx, buyer, seller)
		if err != nil || m.now().Unix() >= entry.ExpiresAt {
			return ErrSubscriptionInvalid
		}
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		item, ok := findItem(shop, mamRoot)
		if !ok || !item.Available {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.emitAccess(&schema.AccessEvent{Buyer: buyer, Seller: seller, MamRoot: mamRoot})
	return nil
}
