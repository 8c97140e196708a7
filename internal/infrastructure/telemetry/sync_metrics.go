package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// MeterName is the meter used for sync engine instruments
const MeterName = "cfo-sync"

// Run outcomes recorded on cfo.sync.runs
const (
	OutcomeSucceeded = "succeeded"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

// SyncMetrics records scheduler runs.
type SyncMetrics struct {
	runs         *Counter
	itemFailures *Counter
	synced       *Counter
	duration     *Histogram
}

// NewSyncMetrics registers the sync run instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	runs, err := NewCounter(meter, "cfo.sync.runs", "Completed sync runs", "{run}")
	if err != nil {
		return nil, err
	}
	itemFailures, err := NewCounter(meter, "cfo.sync.item_failures", "Items that failed inside a sync run", "{item}")
	if err != nil {
		return nil, err
	}
	synced, err := NewCounter(meter, "cfo.sync.records_synced", "Transactions created or updated by sync runs", "{record}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "cfo.sync.run_duration",
		Description: "Wall time of a sync run",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{runs: runs, itemFailures: itemFailures, synced: synced, duration: duration}, nil
}

// RecordRun records one finished run. listFailed marks a run that never reached its items.
func (m *SyncMetrics) RecordRun(ctx context.Context, trigger string, d time.Duration, succeeded, failed, synced int, listFailed bool) {
	outcome := OutcomeSucceeded
	switch {
	case listFailed || (failed > 0 && succeeded == 0):
		outcome = OutcomeFailed
	case failed > 0:
		outcome = OutcomePartial
	}

	m.runs.Inc(ctx, AttrTrigger.String(trigger), AttrOutcome.String(outcome))
	m.duration.RecordDuration(ctx, d, AttrTrigger.String(trigger))
	if failed > 0 {
		m.itemFailures.Add(ctx, int64(failed), AttrTrigger.String(trigger))
	}
	if synced > 0 {
		m.synced.Add(ctx, int64(synced), AttrTrigger.String(trigger))
	}
}
