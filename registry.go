package marketd

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openmarket/marketd/schema"
	bolt "go.etcd.io/bbolt"
)

// RegisterUser creates the immutable identity record for a participant.
// Owner-only; registering the same address twice fails.
func (m *Marketplace) RegisterUser(caller, addr common.Address, externalId string) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	if caller != m.owner {
		return ErrUnauthorized
	}
	if addr == schema.ZeroAddress {
		return ErrNotFound
	}
	return m.store.Db.Update(func(tx *bolt.Tx) error {
		if existUser(tx, addr) {
			return ErrAlreadyExists
		}
		return saveUser(tx, &schema.UserRecord{Address: addr, ExternalId: externalId})
	})
}

// RegisterShop allocates the seller's shop and links the seller at the head
// of the registry chain. The seller must already hold a user record.
func (m *Marketplace) RegisterShop(caller, seller common.Address, info string) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	if caller != m.owner {
		return ErrUnauthorized
	}
	err := m.store.Db.Update(func(tx *bolt.Tx) error {
		if !existUser(tx, seller) {
			return ErrNotFound
		}
		if existSellerNode(tx, seller) {
			return ErrAlreadyExists
		}
		// head insert keeps registration O(1); newest seller is
		// discoverable first
		head := getNextSeller(tx, schema.ZeroAddress)
		if err := setNextSeller(tx, seller, head); err != nil {
			return err
		}
		if err := setNextSeller(tx, schema.ZeroAddress, seller); err != nil {
			return err
		}
		return saveShop(tx, &schema.Shop{
			Owner:                 seller,
			Info:                  info,
			SinglePurchasePrice:   new(big.Int),
			SubscribePerTimePrice: new(big.Int),
			PurchasesOpen:         false,
			Catalog:               []schema.DataItem{},
		})
	})
	if err != nil {
		return err
	}
	log.Debug("shop registered", "seller", seller.Hex())
	return nil
}

// RemoveShop unlinks the seller from the chain by relinking its predecessor
// to its successor, then drops the shop record so it can no longer be
// observed. The chain is singly linked, so finding the predecessor is a scan
// from the sentinel.
func (m *Marketplace) RemoveShop(caller, seller common.Address) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	if caller != m.owner {
		return ErrUnauthorized
	}
	return m.store.Db.Update(func(tx *bolt.Tx) error {
		if !existSellerNode(tx, seller) {
			return ErrNotFound
		}
		prev := schema.ZeroAddress
		for {
			next := getNextSeller(tx, prev)
			if next == seller {
				break
			}
			if next == schema.ZeroAddress {
				return ErrNotFound
			}
			prev = next
		}
		if err := setNextSeller(tx, prev, getNextSeller(tx, seller)); err != nil {
			return err
		}
		if err := delSellerNode(tx, seller); err != nil {
			return err
		}
		return delShop(tx, seller)
	})
}

// NextSeller is the discovery entry point: the address following addr in the
// chain, zero when the walk is done or addr is unknown.
func (m *Marketplace) NextSeller(addr common.Address) (common.Address, error) {
	next := schema.ZeroAddress
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		next = getNextSeller(tx, addr)
		return nil
	})
	return next, err
}

// Sellers walks the chain from the sentinel and returns a full snapshot of
// the registered seller addresses.
func (m *Marketplace) Sellers() ([]common.Address, error) {
	sellers := make([]common.Address, 0)
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		cur := getNextSeller(tx, schema.ZeroAddress)
		for cur != schema.ZeroAddress {
			sellers = append(sellers, cur)
			cur = getNextSeller(tx, cur)
		}
		return nil
	})
	return sellers, err
}

// SellerData returns the public profile behind one registry entry.
func (m *Marketplace) SellerData(seller common.Address) (*schema.SellerProfile, error) {
	profile := &schema.SellerProfile{}
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		if !existSellerNode(tx, seller) {
			return ErrNotFound
		}
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		user, err := getUser(tx, seller)
		if err != nil {
			return err
		}
		profile.Address = seller
		profile.Info = shop.Info
		profile.ExternalId = user.ExternalId
		profile.SinglePurchasePrice = shop.SinglePurchasePrice
		profile.SubscribePerTimePrice = shop.SubscribePerTimePrice
		profile.PurchasesOpen = shop.PurchasesOpen
		profile.DataListSize = len(shop.Catalog)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UserAccounts returns the external id registered for addr.
func (m *Marketplace) UserAccounts(addr common.Address) (string, error) {
	externalId := ""
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		user, err := getUser(tx, addr)
		if err != nil {
			return err
		}
		externalId = user.ExternalId
		return nil
	})
	return externalId, err
}
