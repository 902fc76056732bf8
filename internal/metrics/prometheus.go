// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/status"
)

// Prometheus metrics
var (
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_ingest_duration_seconds",
			Help:    "Time spent handling metric submissions",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_ingest_total",
			Help: "Total metric submissions by result",
		},
		[]string{"result"},
	)

	ServersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_servers_online",
			Help: "Registered servers reporting within the offline timeout",
		},
	)

	ServersOffline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_servers_offline",
			Help: "Registered servers with no report within the offline timeout",
		},
	)

	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_database_operations_total",
			Help: "Total database operations performed",
		},
		[]string{"operation", "status"},
	)
)

type Collector struct {
	store          database.Store
	offlineTimeout time.Duration
}

func NewCollector(store database.Store, offlineTimeout time.Duration) *Collector {
	return &Collector{store: store, offlineTimeout: offlineTimeout}
}

func (c *Collector) RecordIngest(result string, duration time.Duration) {
	IngestTotal.WithLabelValues(result).Inc()
	IngestDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordDatabaseOp(operation string, err error) {
	label := "success"
	if err != nil {
		label = "error"
	}
	DatabaseOperations.WithLabelValues(operation, label).Inc()
}

// UpdateSystemMetrics recomputes the online/offline gauges from the
// current registry and snapshots.
func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	active := true
	servers, err := c.store.GetServers(ctx, database.ServerFilters{Active: &active})
	c.RecordDatabaseOp("get_servers", err)
	if err != nil {
		return err
	}

	statuses, err := c.store.GetStatuses(ctx)
	c.RecordDatabaseOp("get_statuses", err)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	online := 0
	for _, server := range servers {
		if snap, ok := statuses[server.ID]; ok && status.IsOnline(snap.LastUpdateUnix, now, c.offlineTimeout) {
			online++
		}
	}

	ServersOnline.Set(float64(online))
	ServersOffline.Set(float64(len(servers) - online))
	return nil
}
