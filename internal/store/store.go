package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vigil/internal/models"
)

var (
	ErrDuplicateAlert = errors.New("store: duplicate alert id")
	ErrAlertNotFound  = errors.New("store: alert not found")
)

func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			cpu_percent REAL NOT NULL,
			memory_percent REAL NOT NULL,
			disk_percent REAL NOT NULL,
			active_connections INTEGER NOT NULL,
			cache_status TEXT NOT NULL,
			store_status TEXT NOT NULL,
			api_response_ms REAL NOT NULL,
			queue_depth INTEGER NOT NULL,
			error_rate_percent REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			component TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_at DATETIME,
			metadata_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_ts ON metrics(ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_open ON alerts(resolved, severity);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) AppendMetric(ctx context.Context, m models.MetricSample) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO metrics
		(ts,cpu_percent,memory_percent,disk_percent,active_connections,cache_status,store_status,api_response_ms,queue_depth,error_rate_percent)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.Timestamp.UTC(), m.CPUPercent, m.MemoryPercent, m.DiskPercent, m.ActiveConnections,
		string(m.CacheStatus), string(m.StoreStatus), m.APIResponseMs, m.QueueDepth, m.ErrorRatePercent)
	return err
}

func (s *Store) AppendAlert(ctx context.Context, a models.Alert) error {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	b, _ := json.Marshal(meta)
	resolved := 0
	if a.Resolved {
		resolved = 1
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO alerts (id,alert_type,severity,message,component,created_at,resolved,resolved_at,metadata_json)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.Type, string(a.Severity), a.Message, a.Component, a.CreatedAt.UTC(), resolved, a.ResolvedAt, string(b))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateAlert
	}
	return nil
}

func (s *Store) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET resolved=1, resolved_at=? WHERE id=? AND resolved=0`, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *Store) RecentMetrics(ctx context.Context, since time.Time, limit int) ([]models.MetricSample, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ts,cpu_percent,memory_percent,disk_percent,active_connections,cache_status,store_status,api_response_ms,queue_depth,error_rate_percent
		FROM metrics WHERE ts >= ? ORDER BY ts DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.MetricSample, 0, limit)
	for rows.Next() {
		var m models.MetricSample
		var cacheStatus, storeStatus string
		if err := rows.Scan(&m.Timestamp, &m.CPUPercent, &m.MemoryPercent, &m.DiskPercent, &m.ActiveConnections,
			&cacheStatus, &storeStatus, &m.APIResponseMs, &m.QueueDepth, &m.ErrorRatePercent); err != nil {
			return nil, err
		}
		m.CacheStatus = models.Status(cacheStatus)
		m.StoreStatus = models.Status(storeStatus)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) RecentAlerts(ctx context.Context, since time.Time, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,alert_type,severity,message,component,created_at,resolved,resolved_at,metadata_json
		FROM alerts WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Alert, 0, limit)
	for rows.Next() {
		var a models.Alert
		var severity, metaJSON string
		var resolved int
		var resolvedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.Type, &severity, &a.Message, &a.Component, &a.CreatedAt, &resolved, &resolvedAt, &metaJSON); err != nil {
			return nil, err
		}
		a.Severity = models.Severity(severity)
		a.Resolved = resolved == 1
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		if metaJSON != "" {
			meta := map[string]string{}
			if err := json.Unmarshal([]byte(metaJSON), &meta); err == nil && len(meta) > 0 {
				a.Metadata = meta
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DashboardSummary(ctx context.Context, since time.Time) (models.DashboardSummary, error) {
	var out models.DashboardSummary
	var cacheStatus, storeStatus string
	err := s.db.QueryRowContext(ctx, `SELECT ts,cpu_percent,memory_percent,disk_percent,api_response_ms,cache_status,store_status,queue_depth,error_rate_percent
		FROM metrics ORDER BY ts DESC LIMIT 1`).
		Scan(&out.Timestamp, &out.CPUPercent, &out.MemoryPercent, &out.DiskPercent, &out.APIResponseMs,
			&cacheStatus, &storeStatus, &out.QueueDepth, &out.ErrorRatePercent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DashboardSummary{}, err
	}
	out.CacheStatus = models.Status(cacheStatus)
	out.StoreStatus = models.Status(storeStatus)

	var openWarning, openCritical int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN severity='WARNING' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN severity='CRITICAL' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN resolved=0 THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN resolved=0 AND severity='WARNING' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN resolved=0 AND severity='CRITICAL' THEN 1 ELSE 0 END),0)
		FROM alerts WHERE created_at >= ?`, since.UTC()).
		Scan(&out.AlertsTotal, &out.AlertsWarning, &out.AlertsCritical, &out.AlertsUnresolved,
			&openWarning, &openCritical)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	switch {
	case openCritical > 0:
		out.Overall = models.OverallCritical
	case openWarning > 0:
		out.Overall = models.OverallWarning
	default:
		out.Overall = models.OverallHealthy
	}
	return out, nil
}

func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, 0, err
	}
	metricsDeleted, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < ? AND resolved=1`, cutoff.UTC())
	if err != nil {
		return metricsDeleted, 0, err
	}
	alertsDeleted, _ := res.RowsAffected()

	_, _ = s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	_, _ = s.db.ExecContext(ctx, `PRAGMA optimize`)
	return metricsDeleted, alertsDeleted, nil
}
