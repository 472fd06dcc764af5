package marketd

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
)

var log = NewLog("marketd")

// Marketplace owns all ledger state and is the only mutation path into it.
// callLocker serializes state transitions: the ledger machine executes one
// call at a time, so no two settlement operations interleave mid-transition.
type Marketplace struct {
	owner   common.Address // supervising identity, gates registration and deposits
	address common.Address // marketplace identity, bound into every signed digest

	store      *Store
	engine     *gin.Engine
	scheduler  *gocron.Scheduler
	callLocker sync.Mutex

	// archive and event fan-out; both optional, the protocol never depends
	// on either
	wdb   *Wdb
	kafka map[string]*KWriter

	now func() time.Time
}

// NewCore wires the settlement core around an opened store. The HTTP
// surface, archive db and kafka writers are attached by New.
func NewCore(store *Store, owner, address common.Address) *Marketplace {
	return &Marketplace{
		owner:     owner,
		address:   address,
		store:     store,
		scheduler: gocron.NewScheduler(time.UTC),
		now:       time.Now,
	}
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	kafkaUri string, owner, address common.Address,
) *Marketplace {
	store, err := NewStore(boltDirPath)
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	m := NewCore(store, owner, address)
	m.engine = gin.Default()
	m.wdb = wdb

	if kafkaUri != "" {
		kafka, err := NewKWriters(kafkaUri)
		if err != nil {
			panic(err)
		}
		m.kafka = kafka
	}
	return m
}

func (m *Marketplace) Run(port string) {
	go m.runAPI(port)
	m.runJobs()
	log.Info("marketd running", "port", port, "owner", m.owner.Hex(), "address", m.address.Hex())
}

func (m *Marketplace) Close() {
	m.scheduler.Stop()
	if m.wdb != nil {
		m.wdb.Close()
	}
	for _, kw := range m.kafka {
		kw.Close()
	}
	if err := m.store.Close(); err != nil {
		log.Error("close store", "err", err)
	}
	log.Info("marketd closed")
}

// Owner returns the supervising identity.
func (m *Marketplace) Owner() common.Address {
	return m.owner
}

// Address returns the marketplace's own identity.
func (m *Marketplace) Address() common.Address {
	return m.address
}
