package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"vigil/internal/models"
	"vigil/internal/probes"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthyProbe(latency float64) probes.HealthFunc {
	return func(ctx context.Context) (bool, float64, error) {
		return true, latency, nil
	}
}

func failingProbe() probes.HealthFunc {
	return func(ctx context.Context) (bool, float64, error) {
		return false, 0, errors.New("connection refused")
	}
}

func unhealthyProbe(latency float64) probes.HealthFunc {
	return func(ctx context.Context) (bool, float64, error) {
		return false, latency, nil
	}
}

func newTestCollector(cfg Config) *Collector {
	if cfg.CacheTimeout == 0 {
		cfg.CacheTimeout = 5 * time.Second
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = 10 * time.Second
	}
	c := New(cfg, testLogger())
	c.now = func() time.Time { return time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC) }
	c.host = func(ctx context.Context) HostStats {
		return HostStats{CPUPercent: 42.5, MemoryPercent: 61, DiskPercent: 70, ActiveConnections: 8}
	}
	return c
}

func TestCollectHealthySample(t *testing.T) {
	c := newTestCollector(Config{
		Cache: healthyProbe(1.2),
		Store: healthyProbe(2.5),
		API:   healthyProbe(130),
		QueueDepth: func(ctx context.Context) (int, error) {
			return 17, nil
		},
		ErrorRate: func(ctx context.Context) (float64, error) {
			return 2.5, nil
		},
	})

	sample := c.Collect(context.Background())
	if sample.Timestamp != time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("timestamp = %v", sample.Timestamp)
	}
	if sample.CPUPercent != 42.5 || sample.MemoryPercent != 61 || sample.DiskPercent != 70 {
		t.Fatalf("host stats lost: %+v", sample)
	}
	if sample.ActiveConnections != 8 {
		t.Fatalf("connections = %d, want 8", sample.ActiveConnections)
	}
	if sample.CacheStatus != models.StatusConnected || sample.StoreStatus != models.StatusConnected {
		t.Fatalf("statuses = %s/%s, want connected", sample.CacheStatus, sample.StoreStatus)
	}
	if sample.APIResponseMs != 130 {
		t.Fatalf("api latency = %v, want 130", sample.APIResponseMs)
	}
	if sample.QueueDepth != 17 || sample.ErrorRatePercent != 2.5 {
		t.Fatalf("depth/rate = %d/%v", sample.QueueDepth, sample.ErrorRatePercent)
	}
}

func TestCollectDegradesEveryProbeIndependently(t *testing.T) {
	c := newTestCollector(Config{
		Cache: failingProbe(),
		Store: failingProbe(),
		API:   failingProbe(),
		QueueDepth: func(ctx context.Context) (int, error) {
			return 0, errors.New("llen failed")
		},
		ErrorRate: func(ctx context.Context) (float64, error) {
			return 0, errors.New("window gone")
		},
	})
	c.host = func(ctx context.Context) HostStats { return HostStats{} }

	sample := c.Collect(context.Background())
	if sample.CacheStatus != models.StatusDisconnected {
		t.Fatalf("cache status = %s, want disconnected", sample.CacheStatus)
	}
	if sample.StoreStatus != models.StatusDisconnected {
		t.Fatalf("store status = %s, want disconnected", sample.StoreStatus)
	}
	if sample.APIResponseMs != 9999 {
		t.Fatalf("api latency = %v, want sentinel 9999", sample.APIResponseMs)
	}
	if sample.QueueDepth != 0 || sample.ErrorRatePercent != 0 {
		t.Fatalf("depth/rate = %d/%v, want zeros", sample.QueueDepth, sample.ErrorRatePercent)
	}
	if sample.CPUPercent != 0 || sample.MemoryPercent != 0 || sample.DiskPercent != 0 {
		t.Fatalf("host fields = %+v, want zeros", sample)
	}
	if sample.Timestamp.IsZero() {
		t.Fatal("degraded sample missing timestamp")
	}
}

func TestCollectUnhealthyDependencyIsError(t *testing.T) {
	c := newTestCollector(Config{
		Cache: unhealthyProbe(0.9),
		Store: healthyProbe(1.1),
		API:   unhealthyProbe(80),
	})

	sample := c.Collect(context.Background())
	if sample.CacheStatus != models.StatusError {
		t.Fatalf("cache status = %s, want error", sample.CacheStatus)
	}
	if sample.StoreStatus != models.StatusConnected {
		t.Fatalf("store status = %s, want connected", sample.StoreStatus)
	}
	if sample.APIResponseMs != 9999 {
		t.Fatalf("api latency = %v, want sentinel for unhealthy api", sample.APIResponseMs)
	}
}

func TestCollectNilProbesDegradeQuietly(t *testing.T) {
	c := newTestCollector(Config{})

	sample := c.Collect(context.Background())
	if sample.CacheStatus != models.StatusDisconnected || sample.StoreStatus != models.StatusDisconnected {
		t.Fatalf("statuses = %s/%s, want disconnected", sample.CacheStatus, sample.StoreStatus)
	}
	if sample.APIResponseMs != 9999 {
		t.Fatalf("api latency = %v, want 9999", sample.APIResponseMs)
	}
	if sample.QueueDepth != 0 || sample.ErrorRatePercent != 0 {
		t.Fatalf("depth/rate = %d/%v, want zeros", sample.QueueDepth, sample.ErrorRatePercent)
	}
}

func TestCollectProbeTimeoutIsBounded(t *testing.T) {
	slow := func(ctx context.Context) (bool, float64, error) {
		select {
		case <-ctx.Done():
			return false, 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return true, 1, nil
		}
	}
	c := newTestCollector(Config{
		Cache:        slow,
		Store:        healthyProbe(1),
		API:          healthyProbe(50),
		CacheTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	sample := c.Collect(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("collect took %s, probe timeout not applied", elapsed)
	}
	if sample.CacheStatus != models.StatusDisconnected {
		t.Fatalf("cache status = %s, want disconnected after timeout", sample.CacheStatus)
	}
	if sample.StoreStatus != models.StatusConnected {
		t.Fatalf("store status = %s, want connected", sample.StoreStatus)
	}
}
