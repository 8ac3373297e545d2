package collector

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/models"
	"vigil/internal/probes"
)

const apiLatencySentinelMs = 9999

type Config struct {
	Cache      probes.HealthFunc
	Store      probes.HealthFunc
	API        probes.HealthFunc
	QueueDepth probes.DepthFunc
	ErrorRate  probes.RateFunc

	// Host overrides the gopsutil reader when set.
	Host func(ctx context.Context) HostStats

	CacheTimeout time.Duration
	StoreTimeout time.Duration
	APITimeout   time.Duration
	CPUWindow    time.Duration
}

type Collector struct {
	cfg  Config
	log  *slog.Logger
	host func(ctx context.Context) HostStats
	now  func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Collector {
	c := &Collector{cfg: cfg, log: logger, now: time.Now}
	c.host = c.hostStats
	if cfg.Host != nil {
		c.host = cfg.Host
	}
	return c
}

// Collect never fails: every read degrades independently to a sentinel
// so a sample is produced each cycle.
func (c *Collector) Collect(ctx context.Context) models.MetricSample {
	sample := models.MetricSample{Timestamp: c.now().UTC()}

	hs := c.host(ctx)
	sample.CPUPercent = hs.CPUPercent
	sample.MemoryPercent = hs.MemoryPercent
	sample.DiskPercent = hs.DiskPercent
	sample.ActiveConnections = hs.ActiveConnections

	sample.CacheStatus = c.dependencyStatus(ctx, "cache", c.cfg.Cache, c.cfg.CacheTimeout)
	sample.StoreStatus = c.dependencyStatus(ctx, "store", c.cfg.Store, c.cfg.StoreTimeout)
	sample.APIResponseMs = c.apiLatency(ctx)
	sample.QueueDepth = c.queueDepth(ctx)
	sample.ErrorRatePercent = c.errorRate(ctx)

	return sample
}

func (c *Collector) dependencyStatus(ctx context.Context, name string, probe probes.HealthFunc, timeout time.Duration) models.Status {
	if probe == nil {
		return models.StatusDisconnected
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	healthy, _, err := probe(tctx)
	if err != nil {
		c.log.Warn("dependency probe failed", "dep", name, "err", err)
		return models.StatusDisconnected
	}
	if !healthy {
		return models.StatusError
	}
	return models.StatusConnected
}

func (c *Collector) apiLatency(ctx context.Context) float64 {
	if c.cfg.API == nil {
		return apiLatencySentinelMs
	}
	tctx, cancel := context.WithTimeout(ctx, c.cfg.APITimeout)
	defer cancel()
	healthy, latency, err := c.cfg.API(tctx)
	if err != nil {
		c.log.Warn("api probe failed", "err", err)
		return apiLatencySentinelMs
	}
	if !healthy {
		c.log.Warn("api probe unhealthy", "latency_ms", latency)
		return apiLatencySentinelMs
	}
	return latency
}

func (c *Collector) queueDepth(ctx context.Context) int {
	if c.cfg.QueueDepth == nil {
		return 0
	}
	depth, err := c.cfg.QueueDepth(ctx)
	if err != nil {
		c.log.Warn("queue depth probe failed", "err", err)
		return 0
	}
	return depth
}

func (c *Collector) errorRate(ctx context.Context) float64 {
	if c.cfg.ErrorRate == nil {
		return 0
	}
	rate, err := c.cfg.ErrorRate(ctx)
	if err != nil {
		c.log.Warn("error rate probe failed", "err", err)
		return 0
	}
	return rate
}
