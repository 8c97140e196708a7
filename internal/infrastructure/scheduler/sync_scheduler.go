package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/logger"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ItemSyncer syncs the transactions of aggregator items
type ItemSyncer interface {
	// ListAggregatorItems lists every aggregator item across all tenants
	ListAggregatorItems(ctx context.Context) ([]integration.ConnectionItem, error)
	SyncItemTransactions(ctx context.Context, itemID uuid.UUID, window integration.DateRange) (*integration.TransactionSyncResult, error)
}

// RunRecorder receives the totals of every finished run
type RunRecorder interface {
	RecordRun(ctx context.Context, trigger string, d time.Duration, succeeded, failed, synced int, listFailed bool)
}

// SyncTrigger records what started a sync run
type SyncTrigger string

const (
	SyncTriggerScheduled SyncTrigger = "SCHEDULED"
	SyncTriggerManual    SyncTrigger = "MANUAL"
)

// ItemSyncError is the failure of one item inside a run
type ItemSyncError struct {
	ConnectionItemID uuid.UUID `json:"item_id"`
	Message          string    `json:"message"`
}

// SyncRun is one pass over every aggregator item
type SyncRun struct {
	ID           uuid.UUID       `json:"id"`
	Trigger      SyncTrigger     `json:"trigger"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	TotalItems   int             `json:"total_items"`
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
	SyncedCount  int             `json:"synced_count"`
	Errors       []ItemSyncError `json:"errors,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func (r *SyncRun) clone() SyncRun {
	c := *r
	c.Errors = append([]ItemSyncError(nil), r.Errors...)
	return c
}

// SyncStatus is the scheduler state together with the mirror totals
type SyncStatus struct {
	IsRunning bool       `json:"is_running"`
	Scheduled bool       `json:"scheduled"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastRun   *SyncRun   `json:"last_run,omitempty"`
	integration.SyncStats
}

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Schedule is a standard five-field cron expression evaluated in UTC
	Schedule string
	// WindowDays is the trailing window synced for each item on every run
	WindowDays int
	// HistorySize is how many completed runs are kept for inspection
	HistorySize int
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Schedule:    "0 */6 * * *",
		WindowDays:  7,
		HistorySize: 20,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, c.Schedule, err)
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("%w: window days must be positive", ErrInvalidConfig)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: history size must be positive", ErrInvalidConfig)
	}
	return nil
}

// SyncScheduler runs a sync of every aggregator item on a cron schedule and on demand.
// Items are synced one after another; a failing item is recorded and the run moves on.
//
// Stop only cancels future fires. A run already in progress is not interrupted and
// Stop does not wait for it, so a caller that closes the database right after Stop
// may race the tail of that run.
type SyncScheduler struct {
	config  SyncSchedulerConfig
	syncer  ItemSyncer
	stats   integration.SyncStatsReader
	logger  *zap.Logger
	metrics RunRecorder
	now     func() time.Time
	running atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID

	historyMu sync.RWMutex
	history   []*SyncRun
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, syncer ItemSyncer, stats integration.SyncStatsReader, log *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncScheduler{
		config:  config,
		syncer:  syncer,
		stats:   stats,
		logger:  log.Named("sync_scheduler"),
		now:     func() time.Time { return time.Now().UTC() },
		history: make([]*SyncRun, 0, config.HistorySize),
	}, nil
}

// Start registers the recurring trigger. Calling Start on a started scheduler does nothing.
func (s *SyncScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cronLogger := logger.NewCronLogger(s.logger)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	entryID, err := c.AddFunc(s.config.Schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Start()
	s.cron = c
	s.entryID = entryID

	s.logger.Info("Sync scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Int("window_days", s.config.WindowDays),
		zap.Time("next_run", c.Entry(entryID).Next),
	)
	return nil
}

// Stop cancels future scheduled runs without waiting for one in progress
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.entryID = 0
	s.logger.Info("Sync scheduler stopped", zap.Bool("run_in_progress", s.running.Load()))
}

// IsRunning reports whether a sync-all run is in progress
func (s *SyncScheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *SyncScheduler) runScheduled() {
	if _, err := s.SyncAll(context.Background(), SyncTriggerScheduled); err != nil {
		s.logger.Warn("Scheduled sync did not complete", zap.Error(err))
	}
}

// WithMetrics makes every finished run report to recorder. Call before Start.
func (s *SyncScheduler) WithMetrics(recorder RunRecorder) *SyncScheduler {
	s.metrics = recorder
	return s
}

// SyncAll syncs the trailing window of every aggregator item across all tenants.
// Item failures are counted in the returned run and never abort the remaining items.
// An error is returned only when the run could not start or the items could not be listed.
func (s *SyncScheduler) SyncAll(ctx context.Context, trigger SyncTrigger) (*SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncAlreadyInProgress
	}
	defer s.running.Store(false)

	ctx, span := telemetry.StartServiceSpan(ctx, "sync_scheduler", "sync_all",
		telemetry.SpanAttrTrigger, string(trigger),
	)
	defer span.End()

	run := &SyncRun{ID: uuid.New(), Trigger: trigger, StartedAt: s.now()}
	log := s.logger.With(zap.String("run_id", run.ID.String()), zap.String("trigger", string(trigger)))
	defer s.addToHistory(run)

	items, err := s.syncer.ListAggregatorItems(ctx)
	if err != nil {
		run.Error = err.Error()
		s.complete(run)
		s.record(ctx, run, true)
		telemetry.RecordError(span, err)
		log.Error("Failed to list items for sync", zap.Error(err))
		return run.cloneRef(), err
	}
	run.TotalItems = len(items)
	log.Info("Sync run started", zap.Int("items", run.TotalItems))

	window := integration.TrailingDays(s.now(), s.config.WindowDays)
	for i := range items {
		item := &items[i]
		synced, err := s.syncOne(ctx, item.ID, window)
		if err != nil {
			run.ErrorCount++
			run.Errors = append(run.Errors, ItemSyncError{ConnectionItemID: item.ID, Message: err.Error()})
			log.Error("Item sync failed",
				zap.String("connection_item_id", item.ID.String()),
				zap.String("tenant_id", item.TenantID.String()),
				zap.String("institution", item.InstitutionName),
				zap.Error(err),
			)
			continue
		}
		run.SuccessCount++
		run.SyncedCount += synced
	}
	s.complete(run)
	s.record(ctx, run, false)

	telemetry.SetAttributes(span,
		"success_count", run.SuccessCount,
		"error_count", run.ErrorCount,
		telemetry.SpanAttrSyncedCount, run.SyncedCount,
	)
	telemetry.SetOK(span)
	log.Info("Sync run completed",
		zap.Int("success_count", run.SuccessCount),
		zap.Int("error_count", run.ErrorCount),
		zap.Int("synced", run.SyncedCount),
		zap.Duration("duration", run.CompletedAt.Sub(run.StartedAt)),
	)
	return run.cloneRef(), nil
}

// syncOne turns a panic inside one item's sync into that item's error
func (s *SyncScheduler) syncOne(ctx context.Context, itemID uuid.UUID, window integration.DateRange) (synced int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during item sync: %v", r)
		}
	}()
	result, err := s.syncer.SyncItemTransactions(ctx, itemID, window)
	if err != nil {
		return 0, err
	}
	return result.SyncedCount, nil
}

// SyncItem runs a manual sync of one item over the scheduled window. Errors propagate.
func (s *SyncScheduler) SyncItem(ctx context.Context, itemID uuid.UUID) (*integration.TransactionSyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_scheduler", "sync_item",
		telemetry.SpanAttrConnectionItemID, itemID,
		telemetry.SpanAttrTrigger, string(SyncTriggerManual),
	)
	defer span.End()

	result, err := s.syncer.SyncItemTransactions(ctx, itemID, integration.TrailingDays(s.now(), s.config.WindowDays))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

// Status reports whether a run is in progress together with mirror totals per item
func (s *SyncScheduler) Status(ctx context.Context) (*SyncStatus, error) {
	stats, err := s.stats.SyncStats(ctx)
	if err != nil {
		return nil, err
	}
	status := &SyncStatus{
		IsRunning: s.running.Load(),
		SyncStats: *stats,
	}

	s.mu.Lock()
	if s.cron != nil {
		status.Scheduled = true
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			status.NextRunAt = &next
		}
	}
	s.mu.Unlock()

	if recent := s.History(1); len(recent) == 1 {
		status.LastRun = &recent[0]
	}
	return status, nil
}

// History returns up to limit completed runs, newest first. limit <= 0 returns all.
func (s *SyncScheduler) History(limit int) []SyncRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]SyncRun, limit)
	for i := 0; i < limit; i++ {
		result[i] = s.history[i].clone()
	}
	return result
}

func (s *SyncScheduler) complete(run *SyncRun) {
	at := s.now()
	run.CompletedAt = &at
}

func (s *SyncScheduler) record(ctx context.Context, run *SyncRun, listFailed bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRun(ctx, string(run.Trigger), run.CompletedAt.Sub(run.StartedAt),
		run.SuccessCount, run.ErrorCount, run.SyncedCount, listFailed)
}

func (s *SyncScheduler) addToHistory(run *SyncRun) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncRun{run}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

func (r *SyncRun) cloneRef() *SyncRun {
	c := r.clone()
	return &c
}
