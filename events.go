package marketd

import (
	"encoding/json"

	"github.com/openmarket/marketd/schema"
	"github.com/shopspring/decimal"
)

// Event emission is best effort: the archive row and the kafka message are
// written after the ledger transaction has committed, and a failure of
// either never unwinds protocol state.

func (m *Marketplace) emitFunded(e *schema.FundedEvent) {
	m.archiveEvent(&schema.EventRecord{
		EventType:  schema.EventTypeFunded,
		ScriptHash: e.ScriptHash.Hex(),
		Buyer:      e.From.Hex(),
		Seller:     e.Seller.Hex(),
		MamRoot:    e.MamRoot,
		Value:      decimal.NewFromBigInt(e.Value, 0),
	})
	m.publish(schema.FundedTopic, e)
}

func (m *Marketplace) emitFulfilled(e *schema.FulfilledEvent) {
	m.archiveEvent(&schema.EventRecord{
		EventType:     schema.EventTypeFulfilled,
		ScriptHash:    e.ScriptHash.Hex(),
		Buyer:         e.To.Hex(),
		DeliveryProof: e.DeliveryProof,
	})
	m.publish(schema.FulfilledTopic, e)
}

func (m *Marketplace) emitExecuted(e *schema.ExecutedEvent) {
	m.archiveEvent(&schema.EventRecord{
		EventType:  schema.EventTypeExecuted,
		ScriptHash: e.ScriptHash.Hex(),
		Value:      decimal.NewFromBigInt(e.Value, 0),
	})
	m.publish(schema.ExecutedTopic, e)
}

func (m *Marketplace) emitAccess(e *schema.AccessEvent) {
	m.archiveEvent(&schema.EventRecord{
		EventType: schema.EventTypeAccess,
		Buyer:     e.Buyer.Hex(),
		Seller:    e.Seller.Hex(),
		MamRoot:   e.MamRoot,
	})
	m.publish(schema.AccessTopic, e)
}

func (m *Marketplace) archiveEvent(rec *schema.EventRecord) {
	if m.wdb == nil {
		return
	}
	if err := m.wdb.InsertEvent(rec); err != nil {
		log.Error("archive event", "eventType", rec.EventType, "scriptHash", rec.ScriptHash, "err", err)
	}
}

func (m *Marketplace) publish(topic string, event interface{}) {
	if m.kafka == nil {
		return
	}
	kw, ok := m.kafka[topic]
	if !ok {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error("marshal event", "topic", topic, "err", err)
		return
	}
	if err := kw.Write(body); err != nil {
		log.Error("publish event", "topic", topic, "err", err)
	}
}
