package marketd

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openmarket/marketd/schema"
	bolt "go.etcd.io/bbolt"
)

const (
	boltAllocSize = 8 * 1024 * 1024
	boltName      = "market.db"

	purchaseSeqKey = "purchase_seq"
)

// Store keeps all ledger state in one bolt file. Every mutating operation
// runs inside a single Update transaction, so a failed call leaves no
// partial writes behind.
type Store struct {
	Db *bolt.DB
}

func NewStore(boltDirPath string) (*Store, error) {
	if len(boltDirPath) == 0 {
		return nil, errors.New("boltDb dir path can not null")
	}
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	Db, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 2 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	Db.AllocSize = boltAllocSize
	s := &Store{
		Db: Db,
	}

	if err := s.Db.Update(func(tx *bolt.Tx) error {
		bucketNames := []string{
			schema.UserBucket,
			schema.RegistryBucket,
			schema.ShopBucket,
			schema.EscrowBucket,
			schema.SubscriptionBucket,
			schema.BalanceBucket,
			schema.ConstantsBucket,
		}
		return createBuckets(tx, bucketNames)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.Db.Close()
}

func createBuckets(tx *bolt.Tx, buckets []string) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return err
		}
	}
	return nil
}

func putJson(tx *bolt.Tx, bucket string, key []byte, val interface{}) error {
	by, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucket)).Put(key, by)
}

func getJson(tx *bolt.Tx, bucket string, key []byte, out interface{}) error {
	data := tx.Bucket([]byte(bucket)).Get(key)
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func existKey(tx *bolt.Tx, bucket string, key []byte) bool {
	return tx.Bucket([]byte(bucket)).Get(key) != nil
}

// users

func saveUser(tx *bolt.Tx, u *schema.UserRecord) error {
	return putJson(tx, schema.UserBucket, u.Address.Bytes(), u)
}

func getUser(tx *bolt.Tx, addr common.Address) (*schema.UserRecord, error) {
	u := &schema.UserRecord{}
	if err := getJson(tx, schema.UserBucket, addr.Bytes(), u); err != nil {
		return nil, err
	}
	return u, nil
}

func existUser(tx *bolt.Tx, addr common.Address) bool {
	return existKey(tx, schema.UserBucket, addr.Bytes())
}

// registry chain; value is the raw 20-byte successor address, the zero
// address key is the sentinel

func setNextSeller(tx *bolt.Tx, addr, next common.Address) error {
	return tx.Bucket([]byte(schema.RegistryBucket)).Put(addr.Bytes(), next.Bytes())
}

func getNextSeller(tx *bolt.Tx, addr common.Address) common.Address {
	data := tx.Bucket([]byte(schema.RegistryBucket)).Get(addr.Bytes())
	if data == nil {
		return schema.ZeroAddress
	}
	return common.BytesToAddress(data)
}

func existSellerNode(tx *bolt.Tx, addr common.Address) bool {
	return existKey(tx, schema.RegistryBucket, addr.Bytes())
}

func delSellerNode(tx *bolt.Tx, addr common.Address) error {
	return tx.Bucket([]byte(schema.RegistryBucket)).Delete(addr.Bytes())
}

// shops

func saveShop(tx *bolt.Tx, shop *schema.Shop) error {
	return putJson(tx, schema.ShopBucket, shop.Owner.Bytes(), shop)
}

func getShop(tx *bolt.Tx, seller common.Address) (*schema.Shop, error) {
	shop := &schema.Shop{}
	if err := getJson(tx, schema.ShopBucket, seller.Bytes(), shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func delShop(tx *bolt.Tx, seller common.Address) error {
	return tx.Bucket([]byte(schema.ShopBucket)).Delete(seller.Bytes())
}

// escrow records

func saveEscrow(tx *bolt.Tx, rec *schema.EscrowRecord) error {
	return putJson(tx, schema.EscrowBucket, rec.ScriptHash.Bytes(), rec)
}

func getEscrow(tx *bolt.Tx, scriptHash common.Hash) (*schema.EscrowRecord, error) {
	rec := &schema.EscrowRecord{}
	if err := getJson(tx, schema.EscrowBucket, scriptHash.Bytes(), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// subscriptions; key is buyer||seller

func subscriptionKey(buyer, seller common.Address) []byte {
	return append(buyer.Bytes(), seller.Bytes()...)
}

func saveSubscription(tx *bolt.Tx, entry *schema.SubscriptionEntry) error {
	return putJson(tx, schema.SubscriptionBucket, subscriptionKey(entry.Buyer, entry.Seller), entry)
}

func getSubscription(tx *bolt.Tx, buyer, seller common.Address) (*schema.SubscriptionEntry, error) {
	entry := &schema.SubscriptionEntry{}
	if err := getJson(tx, schema.SubscriptionBucket, subscriptionKey(buyer, seller), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// balances, stored as decimal strings

func getBalance(tx *bolt.Tx, addr common.Address) *big.Int {
	data := tx.Bucket([]byte(schema.BalanceBucket)).Get(addr.Bytes())
	if data == nil {
		return new(big.Int)
	}
	amount, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

func setBalance(tx *bolt.Tx, addr common.Address, amount *big.Int) error {
	return tx.Bucket([]byte(schema.BalanceBucket)).Put(addr.Bytes(), []byte(amount.String()))
}

func creditBalance(tx *bolt.Tx, addr common.Address, amount *big.Int) error {
	return setBalance(tx, addr, new(big.Int).Add(getBalance(tx, addr), amount))
}

func debitBalance(tx *bolt.Tx, addr common.Address, amount *big.Int) error {
	balance := getBalance(tx, addr)
	if balance.Cmp(amount) < 0 {
		return ErrInvalidAmount
	}
	return setBalance(tx, addr, new(big.Int).Sub(balance, amount))
}

// nextPurchaseSeq returns a store-persisted monotone counter; it is folded
// into every scriptHash so no two purchases ever share a digest.
func nextPurchaseSeq(tx *bolt.Tx) (uint64, error) {
	bkt := tx.Bucket([]byte(schema.ConstantsBucket))
	seq := uint64(0)
	if data := bkt.Get([]byte(purchaseSeqKey)); data != nil {
		seq = binary.BigEndian.Uint64(data)
	}
	seq += 1
	by := make([]byte, 8)
	binary.BigEndian.PutUint64(by, seq)
	if err := bkt.Put([]byte(purchaseSeqKey), by); err != nil {
		return 0, err
	}
	return seq, nil
}
