package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatter reports connection pool usage. *dbpool.Pool satisfies it.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// poolCollector exports pgxpool statistics at scrape time.
type poolCollector struct {
	pool PoolStatter

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
	waits    *prometheus.Desc
}

// NewPoolCollector returns a collector for the given pool.
func NewPoolCollector(pool PoolStatter) prometheus.Collector {
	return &poolCollector{
		pool:     pool,
		total:    prometheus.NewDesc("auditlog_db_pool_conns", "Open connections in the pool", nil, nil),
		idle:     prometheus.NewDesc("auditlog_db_pool_idle_conns", "Idle connections in the pool", nil, nil),
		acquired: prometheus.NewDesc("auditlog_db_pool_acquired_conns", "Connections currently acquired", nil, nil),
		max:      prometheus.NewDesc("auditlog_db_pool_max_conns", "Configured pool size", nil, nil),
		waits:    prometheus.NewDesc("auditlog_db_pool_empty_acquire_total", "Acquires that had to wait for a free connection", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
	ch <- c.waits
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
}
