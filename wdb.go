package marketd

import (
	"path"
	"time"

	"github.com/openmarket/marketd/schema"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "marketd.sqlite"

// Wdb is the off-ledger archive: the append-only event table clients filter
// on, and the daily settlement rollups. Protocol state never lives here.
type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	logLevel := logger.Error
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logLevel),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.EventRecord{}, &schema.SettleStatistic{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) InsertEvent(rec *schema.EventRecord) error {
	return w.Db.Create(rec).Error
}

func (w *Wdb) GetEventsByScriptHash(scriptHash string) ([]schema.EventRecord, error) {
	res := make([]schema.EventRecord, 0)
	err := w.Db.Where("script_hash = ?", scriptHash).Order("id asc").Find(&res).Error
	return res, err
}

func (w *Wdb) GetEventsByAddress(addr string, eventType string) ([]schema.EventRecord, error) {
	res := make([]schema.EventRecord, 0)
	query := w.Db.Where("buyer = ? OR seller = ?", addr, addr)
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	err := query.Order("id asc").Find(&res).Error
	return res, err
}

// ExecutedSummary aggregates the executed settlements of one day.
func (w *Wdb) ExecutedSummary(day string) (count int64, total decimal.Decimal, err error) {
	start, err := time.Parse("2006-01-02", day)
	if err != nil {
		return
	}
	end := start.AddDate(0, 0, 1)

	rows := make([]schema.EventRecord, 0)
	err = w.Db.Where("event_type = ? AND created_at >= ? AND created_at < ?",
		schema.EventTypeExecuted, start, end).Find(&rows).Error
	if err != nil {
		return
	}
	total = decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	count = int64(len(rows))
	return
}

func (w *Wdb) UpdateSettleStatistic(stat *schema.SettleStatistic) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(stat).Error
}

func (w *Wdb) GetSettleStatistic(day string) (*schema.SettleStatistic, error) {
	stat := &schema.SettleStatistic{}
	err := w.Db.Where("date = ?", day).First(stat).Error
	return stat, err
}
