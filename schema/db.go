package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventRecord is the append-only archive row behind the observable events;
// clients filter by the indexed columns instead of polling ledger state.
type EventRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	EventType  string `gorm:"index:idx_event_type" json:"eventType"`
	ScriptHash string `gorm:"index:idx_script_hash;size:66" json:"scriptHash"`
	Buyer      string `gorm:"index:idx_buyer;size:42" json:"buyer"`
	Seller     string `gorm:"index:idx_seller;size:42" json:"seller"`
	MamRoot    string `json:"mamRoot"`

	Value         decimal.Decimal `gorm:"type:decimal(38,0)" json:"value"`
	DeliveryProof string          `json:"deliveryProof"`
}

// SettleStatistic is a per-day rollup of executed settlements.
type SettleStatistic struct {
	ID            uint            `gorm:"primarykey"`
	Date          string          `gorm:"uniqueIndex;size:10" json:"date"` // "2006-01-02"
	ExecutedCount int64           `json:"executedCount"`
	ExecutedTotal decimal.Decimal `gorm:"type:decimal(38,0)" json:"executedTotal"`
}
