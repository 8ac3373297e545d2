package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/alerts"
	"vigil/internal/collector"
	"vigil/internal/models"
	"vigil/internal/retention"
	"vigil/internal/store"
)

var (
	ErrAlreadyRunning = errors.New("monitor: already running")
	ErrNotRunning     = errors.New("monitor: not running")
)

type Config struct {
	SampleInterval  time.Duration
	PollTimeout     time.Duration
	SweepEvery      time.Duration
	SummaryLookback time.Duration
	Thresholds      models.Thresholds
}

type Monitor struct {
	cfg Config
	log *slog.Logger

	store     *store.Store
	collector *collector.Collector
	queue     *alerts.Queue
	processor *alerts.Processor
	retention *retention.Service

	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func New(cfg Config, st *store.Store, col *collector.Collector, q *alerts.Queue, proc *alerts.Processor, ret *retention.Service, logger *slog.Logger) *Monitor {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 30 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = cfg.SampleInterval
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 6 * time.Hour
	}
	if cfg.SummaryLookback <= 0 {
		cfg.SummaryLookback = 24 * time.Hour
	}
	return &Monitor{
		cfg:       cfg,
		log:       logger,
		store:     st,
		collector: col,
		queue:     q,
		processor: proc,
		retention: ret,
		now:       time.Now,
	}
}

func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.collectLoop(gctx)
		return nil
	})
	g.Go(func() error {
		m.processLoop(gctx)
		return nil
	})
	m.cancel = cancel
	m.group = g
	m.running = true
	m.log.Info("monitor started",
		"sample_interval", m.cfg.SampleInterval, "poll_timeout", m.cfg.PollTimeout)
	return nil
}

func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}
	m.cancel()
	_ = m.group.Wait()
	m.cancel = nil
	m.group = nil
	m.running = false
	m.log.Info("monitor stopped")
	return nil
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) collectLoop(ctx context.Context) {
	// Zero delay on the first cycle so a sample exists right after Start.
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		next := m.cfg.SampleInterval
		if err := m.cycle(ctx); err != nil {
			m.log.Error("collection cycle panicked", "err", err)
			next = 2 * m.cfg.SampleInterval
		}
		timer.Reset(next)
	}
}

// cycle returns an error only when the cycle panicked; ordinary read and
// storage failures are logged and the cadence stays unchanged.
func (m *Monitor) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	sample := m.collector.Collect(ctx)
	if dbErr := m.store.AppendMetric(ctx, sample); dbErr != nil {
		m.log.Error("append metric", "err", dbErr)
	}
	for _, alert := range alerts.Evaluate(sample, m.cfg.Thresholds) {
		if pushErr := m.queue.Push(ctx, alert); pushErr != nil {
			if ctx.Err() == nil {
				m.log.Warn("alert dropped", "err", pushErr, "type", alert.Type)
			}
			return nil
		}
	}
	return nil
}

func (m *Monitor) processLoop(ctx context.Context) {
	nextSweep := m.now()
	for {
		if ctx.Err() != nil {
			return
		}
		alert, ok := m.queue.Pop(ctx, m.cfg.PollTimeout)
		if ok {
			m.processor.Process(ctx, alert)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		now := m.now()
		m.processor.Housekeep(now)
		if !now.Before(nextSweep) {
			m.retention.Run(ctx)
			nextSweep = now.Add(m.cfg.SweepEvery)
		}
	}
}

// RecentAlerts returns alerts from the trailing window, most recent
// first. A non-positive window falls back to the configured lookback.
func (m *Monitor) RecentAlerts(ctx context.Context, window time.Duration, limit int) ([]models.Alert, error) {
	return m.store.RecentAlerts(ctx, m.since(window), limit)
}

func (m *Monitor) RecentMetrics(ctx context.Context, window time.Duration, limit int) ([]models.MetricSample, error) {
	return m.store.RecentMetrics(ctx, m.since(window), limit)
}

func (m *Monitor) DashboardSummary(ctx context.Context) (models.DashboardSummary, error) {
	summary, err := m.store.DashboardSummary(ctx, m.since(0))
	if err != nil {
		return models.DashboardSummary{}, err
	}
	summary.Window = m.cfg.SummaryLookback
	return summary, nil
}

func (m *Monitor) since(window time.Duration) time.Time {
	if window <= 0 {
		window = m.cfg.SummaryLookback
	}
	return m.now().UTC().Add(-window)
}

// SubmitTestAlert injects a hand-built alert into the live pipeline, so it
// passes through the same dedup, persistence and notification path as a
// collected one.
func (m *Monitor) SubmitTestAlert(ctx context.Context, typ string, severity models.Severity, message, component string) error {
	if !severity.Valid() {
		return fmt.Errorf("monitor: unknown severity %q", severity)
	}
	if !m.Running() {
		return ErrNotRunning
	}
	return m.queue.Push(ctx, models.Alert{
		Type:      typ,
		Severity:  severity,
		Message:   message,
		Component: component,
		CreatedAt: m.now().UTC(),
	})
}
