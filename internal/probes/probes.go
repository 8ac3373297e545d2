package probes

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"
)

type HealthFunc func(ctx context.Context) (healthy bool, latencyMs float64, err error)

type DepthFunc func(ctx context.Context) (int, error)

type RateFunc func(ctx context.Context) (float64, error)

func HTTPCheck(url string, client *http.Client) HealthFunc {
	if client == nil {
		client = &http.Client{}
	}
	return func(ctx context.Context) (bool, float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, 0, fmt.Errorf("build request: %w", err)
		}
		start := time.Now()
		resp, err := client.Do(req)
		latency := time.Since(start).Seconds() * 1000
		if err != nil {
			return false, latency, fmt.Errorf("get %s: %w", url, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode < http.StatusInternalServerError, latency, nil
	}
}

func SQLPing(db *sql.DB) HealthFunc {
	return func(ctx context.Context) (bool, float64, error) {
		start := time.Now()
		err := db.PingContext(ctx)
		latency := time.Since(start).Seconds() * 1000
		if err != nil {
			return false, latency, fmt.Errorf("ping store: %w", err)
		}
		return true, latency, nil
	}
}
