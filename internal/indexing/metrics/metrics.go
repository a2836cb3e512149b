package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// CyclesTotal tracks finished cycles by outcome
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
		[]string{"status"},
	)

	// CycleDuration tracks wall time of a cycle
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqllogs_cycle_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EventsDispatched tracks notifications per destination
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_events_dispatched_total",
			Help: "Total number of SQL events posted",
		},
		[]string{"destination", "status"},
	)

	// EventsFetched tracks rows returned by range queries per chain
	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_events_fetched_total",
			Help: "Total number of SQL events fetched",
		},
		[]string{"chain"},
	)

	// CursorBlock tracks the persisted cursor per chain
	CursorBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqllogs_cursor_block",
			Help: "Last processed block per chain",
		},
		[]string{"chain"},
	)

	// VaultWrites tracks state snapshots written to the vault
	VaultWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_vault_writes_total",
			Help: "Total number of state snapshots written to the vault",
		},
		[]string{"status"},
	)

	// HTTPRetries tracks backoff retries per upstream service
	HTTPRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_http_retries_total",
			Help: "Total number of retried HTTP calls",
		},
		[]string{"service"},
	)

	// BootstrapTotal tracks how the local state was established
	BootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqllogs_bootstrap_total",
			Help: "Bootstrap outcomes",
		},
		[]string{"result"},
	)
)

// Push sends the default registry to a Pushgateway. Runs are short-lived,
// so there is nothing to scrape.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = "sqllogs"
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
