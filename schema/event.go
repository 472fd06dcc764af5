package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// kafka topics
const (
	FundedTopic    = "marketd_funded"
	FulfilledTopic = "marketd_fulfilled"
	ExecutedTopic  = "marketd_executed"
	AccessTopic    = "marketd_access"
)

const (
	EventTypeFunded    = "Funded"
	EventTypeFulfilled = "Fulfilled"
	EventTypeExecuted  = "Executed"
	EventTypeAccess    = "AccessGranted"
)

type FundedEvent struct {
	ScriptHash common.Hash    `json:"scriptHash"`
	From       common.Address `json:"from"` // buyer
	Seller     common.Address `json:"seller"`
	MamRoot    string         `json:"mamRoot"`
	Value      *big.Int       `json:"value"`
}

type FulfilledEvent struct {
	ScriptHash    common.Hash    `json:"scriptHash"`
	To            common.Address `json:"to"` // buyer, filtered on by clients
	DeliveryProof string         `json:"deliveryProof"`
}

type ExecutedEvent struct {
	ScriptHash common.Hash `json:"scriptHash"`
	Value      *big.Int    `json:"value"`
}

// AccessEvent marks a per-item access granted under a live subscription;
// no escrow record backs it.
type AccessEvent struct {
	Buyer   common.Address `json:"buyer"`
	Seller  common.Address `json:"seller"`
	MamRoot string         `json:"mamRoot"`
}
