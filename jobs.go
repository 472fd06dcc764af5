package marketd

import (
	"github.com/openmarket/marketd/schema"
)

func (m *Marketplace) runJobs() {
	m.scheduler.Every(1).Minute().SingletonMode().Do(m.updateSettleStatistic)

	m.scheduler.StartAsync()
}

func (m *Marketplace) updateSettleStatistic() {
	if m.wdb == nil {
		return
	}
	day := m.now().UTC().Format("2006-01-02")
	count, total, err := m.wdb.ExecutedSummary(day)
	if err != nil {
		log.Error("executed summary", "day", day, "err", err)
		return
	}
	if err := m.wdb.UpdateSettleStatistic(&schema.SettleStatistic{
		Date:          day,
		ExecutedCount: count,
		ExecutedTotal: total,
	}); err != nil {
		log.Error("update settle statistic", "day", day, "err", err)
	}
}
