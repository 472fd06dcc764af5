package marketd

import (
	"testing"
	"time"

	"github.com/openmarket/marketd/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWdbEvents(t *testing.T) {
	w := NewSqliteDb(t.TempDir())
	defer w.Close()
	assert.NoError(t, w.Migrate())

	scriptHash := "0x1111111111111111111111111111111111111111111111111111111111111111"
	assert.NoError(t, w.InsertEvent(&schema.EventRecord{
		EventType:  schema.EventTypeFunded,
		ScriptHash: scriptHash,
		Buyer:      "0xb1",
		Seller:     "0xs1",
		Value:      decimal.NewFromInt(50),
	}))
	assert.NoError(t, w.InsertEvent(&schema.EventRecord{
		EventType:  schema.EventTypeExecuted,
		ScriptHash: scriptHash,
		Value:      decimal.NewFromInt(50),
	}))

	events, err := w.GetEventsByScriptHash(scriptHash)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(events))
	assert.Equal(t, schema.EventTypeFunded, events[0].EventType)
	assert.Equal(t, schema.EventTypeExecuted, events[1].EventType)

	events, err = w.GetEventsByAddress("0xb1", schema.EventTypeFunded)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))

	events, err = w.GetEventsByAddress("0xb1", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))
}

func TestWdbSettleStatistic(t *testing.T) {
	w := NewSqliteDb(t.TempDir())
	defer w.Close()
	assert.NoError(t, w.Migrate())

	day := "2023-11-14"
	assert.NoError(t, w.UpdateSettleStatistic(&schema.SettleStatistic{
		Date:          day,
		ExecutedCount: 1,
		ExecutedTotal: decimal.NewFromInt(50),
	}))
	// upsert replaces the same day's row
	assert.NoError(t, w.UpdateSettleStatistic(&schema.SettleStatistic{
		Date:          day,
		ExecutedCount: 3,
		ExecutedTotal: decimal.NewFromInt(150),
	}))

	stat, err := w.GetSettleStatistic(day)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stat.ExecutedCount)
	assert.Equal(t, "150", stat.ExecutedTotal.String())
}

func TestSettleStatisticJob(t *testing.T) {
	m := newTestMarket(t)
	m.wdb = NewSqliteDb(t.TempDir())
	defer m.wdb.Close()
	assert.NoError(t, m.wdb.Migrate())

	m.archiveEvent(&schema.EventRecord{
		EventType:  schema.EventTypeExecuted,
		ScriptHash: "0xaa",
		Value:      decimal.NewFromInt(50),
	})
	m.archiveEvent(&schema.EventRecord{
		EventType:  schema.EventTypeExecuted,
		ScriptHash: "0xbb",
		Value:      decimal.NewFromInt(70),
	})
	// non-executed rows stay out of the rollup
	m.archiveEvent(&schema.EventRecord{
		EventType:  schema.EventTypeFunded,
		ScriptHash: "0xcc",
		Value:      decimal.NewFromInt(999),
	})

	m.updateSettleStatistic()

	day := time.Now().UTC().Format("2006-01-02")
	stat, err := m.wdb.GetSettleStatistic(day)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stat.ExecutedCount)
	assert.Equal(t, "120", stat.ExecutedTotal.String())
}
