package marketd

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/openmarket/marketd/schema"
	bolt "go.etcd.io/bbolt"
)

// Deposit credits value to an account. Owner-only; it is the supervising
// identity's entry point for moving value onto the ledger.
func (m *Marketplace) Deposit(caller, addr common.Address, amount *big.Int) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	if caller != m.owner {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return m.store.Db.Update(func(tx *bolt.Tx) error {
		return creditBalance(tx, addr, amount)
	})
}

func (m *Marketplace) BalanceOf(addr common.Address) (*big.Int, error) {
	balance := new(big.Int)
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		balance = getBalance(tx, addr)
		return nil
	})
	return balance, err
}

// EscrowOf returns the settlement record behind one scriptHash.
func (m *Marketplace) EscrowOf(scriptHash common.Hash) (*schema.EscrowRecord, error) {
	rec := &schema.EscrowRecord{}
	err := m.store.Db.View(func(tx *bolt.Tx) error {
		got, err := getEscrow(tx, scriptHash)
		if err != nil {
			return err
		}
		*rec = *got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PurchaseData locks paidValue against one catalog item and opens a Funded
// settlement record. Payment must match the shop's single-item price
// exactly; there is no change-making. The returned scriptHash keys the
// whole settlement and both required signatures.
func (m *Marketplace) PurchaseData(buyer, seller common.Address, mamRoot string, paidValue *big.Int) (common.Hash, error) {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	scriptHash := common.Hash{}
	if paidValue == nil || paidValue.Sign() < 0 {
		return scriptHash, ErrInvalidAmount
	}
	var funded *schema.FundedEvent
	err := m.store.Db.Update(func(tx *bolt.Tx) error {
		if !existUser(tx, buyer) {
			return ErrNotFound
		}
		shop, err := getShop(tx, seller)
		if err != nil {
			return err
		}
		if !shop.PurchasesOpen {
			return ErrInvalidState
		}
		item, ok := findItem(shop, mamRoot)
		if !ok || !item.Available {
			return ErrNotFound
		}
		if paidValue.Cmp(shop.SinglePurchasePrice) != 0 {
			return ErrInvalidAmount
		}
		if err := debitBalance(tx, buyer, paidValue); err != nil {
			return err
		}
		// the escrow pool is carried on the marketplace's own balance
		if err := creditBalance(tx, m.address, paidValue); err != nil {
			return err
		}

		seq, err := nextPurchaseSeq(tx)
		if err != nil {
			return err
		}
		seqBy := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBy, seq)
		scriptHash = crypto.Keccak256Hash(
			m.address.Bytes(),
			buyer.Bytes(),
			seller.Bytes(),
			[]byte(mamRoot),
			seqBy,
		)

		if err := saveEscrow(tx, &schema.EscrowRecord{
			ScriptHash: scriptHash,
			Buyer:      buyer,
			Seller:     seller,
			MamRoot:    mamRoot,
			Amount:     paidValue,
			Status:     schema.EscrowStatusFunded,
			CreatedAt:  m.now().Unix(),
		}); err != nil {
			return err
		}
		funded = &schema.FundedEvent{
			ScriptHash: scriptHash,
			From:       buyer,
			Seller:     seller,
			MamRoot:    mamRoot,
			Value:      paidValue,
		}
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}

	m.emitFunded(funded)
	return scriptHash, nil
}

// Finalize records the seller's signed delivery attestation and moves the
// record from Funded to Finalized. The signature commits to the settle hash
// of this record; any other signer, or any record not in Funded state, is
// rejected.
func (m *Marketplace) Finalize(scriptHash common.Hash, sig Signature, deliveryProof string) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	var fulfilled *schema.FulfilledEvent
	err := m.store.Db.Update(func(tx *bolt.Tx) error {
		rec, err := getEscrow(tx, scriptHash)
		if err != nil {
			return err
		}
		if rec.Status != schema.EscrowStatusFunded {
			return ErrInvalidState
		}
		settleHash := SettleHash(m.address, scriptHash, rec.Seller, rec.Amount)
		if err := VerifySigner(rec.Seller, settleHash, sig); err != nil {
			return err
		}
		rec.Status = schema.EscrowStatusFinalized
		rec.DeliveryProof = deliveryProof
		if err := saveEscrow(tx, rec); err != nil {
			return err
		}
		fulfilled = &schema.FulfilledEvent{
			ScriptHash:    scriptHash,
			To:            rec.Buyer,
			DeliveryProof: deliveryProof,
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.emitFulfilled(fulfilled)
	return nil
}

// Execute releases the escrowed value to the seller upon the buyer's signed
// confirmation. The record must already be Finalized; the status check
// before the transition is the replay guard, a scriptHash passes each
// transition at most once.
func (m *Marketplace) Execute(scriptHash common.Hash, sig Signature) error {
	m.callLocker.Lock()
	defer m.callLocker.Unlock()

	var executed *schema.ExecutedEvent
	err := m.store.Db.Update(func(tx *bolt.Tx) error {
		rec, err := getEscrow(tx, scriptHash)
		if err != nil {
			return err
		}
		if rec.Status != schema.EscrowStatusFinalized {
			return ErrInvalidState
		}
		settleHash := SettleHash(m.address, scriptHash, rec.Seller, rec.Amount)
		if err := VerifySigner(rec.Buyer, settleHash, sig); err != nil {
			return err
		}
		if err := debitBalance(tx, m.address, rec.Amount); err != nil {
			return err
		}
		if err := creditBalance(tx, rec.Seller, rec.Amount); err != nil {
			return err
		}
		rec.Status = schema.EscrowStatusExecuted
		if err := saveEscrow(tx, rec); err != nil {
			return err
		}
		executed = &schema.ExecutedEvent{
			ScriptHash: scriptHash,
			Value:      rec.Amount,
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.emitExecuted(executed)
	return nil
}
