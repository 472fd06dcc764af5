package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// bolt bucket names
const (
	UserBucket         = "users"
	RegistryBucket     = "registry"
	ShopBucket         = "shops"
	EscrowBucket       = "escrows"
	SubscriptionBucket = "subscriptions"
	BalanceBucket      = "balances"
	ConstantsBucket    = "constants"
)

// registry sentinel; the seller chain is rooted at the zero address and
// terminates back at it
var ZeroAddress = common.Address{}

type EscrowStatus byte

const (
	EscrowStatusFunded    EscrowStatus = 0x01 // value locked, waiting for seller attestation
	EscrowStatusFinalized EscrowStatus = 0x02 // seller delivery attestation accepted
	EscrowStatusExecuted  EscrowStatus = 0x03 // value released to seller, terminal
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowStatusFunded:
		return "funded"
	case EscrowStatusFinalized:
		return "finalized"
	case EscrowStatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// UserRecord is created once per registered participant and never updated.
type UserRecord struct {
	Address    common.Address `json:"address"`
	ExternalId string         `json:"externalId"`
}

// SellerNode is one link of the registry chain; key is the seller address,
// Next points to the following seller (zero terminates).
type SellerNode struct {
	Address common.Address `json:"address"`
	Next    common.Address `json:"next"`
}

type DataItem struct {
	MamRoot   string `json:"mamRoot"` // opaque content locator
	Metadata  string `json:"metadata"`
	Available bool   `json:"available"`
}

type Shop struct {
	Owner                 common.Address `json:"owner"`
	Info                  string         `json:"info"`
	SinglePurchasePrice   *big.Int       `json:"singlePurchasePrice"`
	SubscribePerTimePrice *big.Int       `json:"subscribePerTimePrice"`
	// PurchasesOpen gates new per-item purchases only; subscriptions and
	// subscription access are independent of it
	PurchasesOpen bool       `json:"purchasesOpen"`
	Catalog       []DataItem `json:"catalog"`
}

// EscrowRecord holds one purchase's locked value and settlement state,
// keyed by ScriptHash.
type EscrowRecord struct {
	ScriptHash    common.Hash    `json:"scriptHash"`
	Buyer         common.Address `json:"buyer"`
	Seller        common.Address `json:"seller"`
	MamRoot       string         `json:"mamRoot"`
	Amount        *big.Int       `json:"amount"`
	Status        EscrowStatus   `json:"status"`
	DeliveryProof string         `json:"deliveryProof"` // opaque pointer submitted with the seller attestation
	CreatedAt     int64          `json:"createdAt"`     // unix seconds
}

type SubscriptionEntry struct {
	Buyer     common.Address `json:"buyer"`
	Seller    common.Address `json:"seller"`
	ExpiresAt int64          `json:"expiresAt"` // unix seconds
}

// SellerProfile is the read model behind seller discovery.
type SellerProfile struct {
	Address               common.Address `json:"address"`
	Info                  string         `json:"info"`
	ExternalId            string         `json:"externalId"`
	SinglePurchasePrice   *big.Int       `json:"singlePurchasePrice"`
	SubscribePerTimePrice *big.Int       `json:"subscribePerTimePrice"`
	PurchasesOpen         bool           `json:"purchasesOpen"`
	DataListSize          int            `json:"dataListSize"`
}
