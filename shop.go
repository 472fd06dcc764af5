package marketd

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openmarket/marketd/schema"
	bolt "go.etcd.io/bbolt"
)

// updateShop loads caller's shop, applies fn and saves it back inside one
// transaction. All owner-only catalog operations go through here; the shop
// is keyed by its owner, so a non-owner caller simply has no shop to hit.
func (m *Marketplace) updateShop(caller common.Address, fn func(shop *schema.Shop) error) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	return m.store.Db.Update(func(tx *bolt.Tx) error {
		shop, err := getShop(tx, caller)
		if err != nil {
			return err
		}
		if shop.Owner != caller {
			return ErrUnauthorized
		}
		if err := fn(shop); err != nil {
			return err
		}
		return saveShop(tx, shop)
	})
}

func (m *Marketplace) SetPrice(caller common.Address, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return ErrInvalidAmount
	}
	return m.updateShop(caller, func(shop *schema.Shop) error {
		shop.SinglePurchasePrice = value
		return nil
	})
}

func (m *Marketplace) SetSubscribePrice(caller common.Address, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return ErrInvalidAmount
	}
	return m.updateShop(caller, func(shop *schema.Shop) error {
		shop.SubscribePerTimePrice = value
		return nil
	})
}

// SetPurchaseOpen opens the shop for new per-item purchases. Already
// escrowed records and subscription access are unaffected by the gate.
func (m *Marketplace) SetPurchaseOpen(caller common.Address) error {
	return m.updateShop(caller, func(shop *schema.Shop) error {
		shop.PurchasesOpen = true
		return nil
	})
}

func (m *Marketplace) SetPurchaseClose(caller common.Address) error {
	return m.updateShop(caller, func(shop *schema.Shop) error {
		shop.PurchasesOpen = false
		return nil
	})
}

// UpdateData appends one item to the caller's catalog and returns its index.
// The mamRoot doubles as the availability key, so it must be unique within
// the shop.
func (m *Marketplace) UpdateData(caller common.Address, mamRoot, metadata string) (int, error) {
	index := 0
	err := m.updateShop(caller, func(shop *schema.Shop) error {
		for i := range shop.Catalog {
			if shop.Catalog[i].MamRoot == mamRoot {
				return ErrAlreadyExists
			}
		}
		shop.Catalog = append(shop.Catalog, schema.DataItem{
			MamRoot:   mamRoot,
			Metadata:  metadata,
			Available: true,
		})
		index = len(shop.Catalog) - 1
		return nil
	})
	return index, err
}

// SetDataAvailability withdraws or restores one listing without removing it
// from the catalog.
func (m *Marketplace) SetDataAvailability(caller common.Address, mamRoot string, available bool) error {
	return m.updateShop(caller, func(shop *schema.Shop) error {
		for i := range shop.Catalog {
			if shop.Catalog[i].MamRoot == mamRoot {
				shop.Catalog[i].Available = available
				return nil
			}
		}
		return ErrNotFound
	})
}

func (m *Marketplace) GetData(seller common.Address, index int) (*schema.DataItem, error) {
	item := &schema.DataItem{}
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(shop.Catalog) {
			return ErrNotFound
		}
		*item = shop.Catalog[index]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (m *Marketplace) GetDataListSize(seller common.Address) (int, error) {
	size := 0
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		size = len(shop.Catalog)
		return nil
	})
	return size, err
}

// GetDataAvailability reports whether the pointer is listed and available.
// Unknown sellers and unknown pointers answer false instead of erroring;
// clients probe this defensively before purchasing.
func (m *Marketplace) GetDataAvailability(seller common.Address, mamRoot string) (bool, error) {
	available := false
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		shop, err := getShop(tx, seller)
		if err != nil {
			return nil
		}
		for i := range shop.Catalog {
			if shop.Catalog[i].MamRoot == mamRoot {
				available = shop.Catalog[i].Available
				return nil
			}
		}
		return nil
	})
	return available, err
}

func findItem(shop *schema.Shop, mamRoot string) (*schema.DataItem, bool) {
	for i := range shop.Catalog {
		if shop.Catalog[i].MamRoot == mamRoot {
			return &shop.Catalog[i], true
		}
	}
	return nil, false
}
