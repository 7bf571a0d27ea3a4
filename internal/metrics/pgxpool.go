package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterPoolStats exposes pgx pool health next to the domain collectors.
// Stat() returns a snapshot, each scrape reads a fresh one.
func RegisterPoolStats(pool *pgxpool.Pool) {
	for _, g := range []struct {
		name string
		help string
		read func(*pgxpool.Stat) float64
	}{
		{"automation_db_conns_acquired", "Connections currently checked out of the pool", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
		{"automation_db_conns_idle", "Open connections sitting idle in the pool", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
		{"automation_db_conns_total", "Open connections, idle plus acquired", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
		{"automation_db_conns_max", "Pool size ceiling", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
	} {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return g.read(pool.Stat())
		})
	}

	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "automation_db_empty_acquires_total",
		Help: "Acquires that waited because the pool had no free connection",
	}, func() float64 {
		return float64(pool.Stat().EmptyAcquireCount())
	})
}
