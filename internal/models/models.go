package models

import "time"

type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityCritical
}

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Overall health derived from unresolved alerts in the lookback window.
const (
	OverallHealthy  = "healthy"
	OverallWarning  = "warning"
	OverallCritical = "critical"
)

const (
	RuleCPUUsage        = "cpu_usage"
	RuleMemoryUsage     = "memory_usage"
	RuleDiskUsage       = "disk_usage"
	RuleAPIResponseTime = "api_response_time"
	RuleQueueDepth      = "queue_depth"
	RuleErrorRate       = "error_rate"
	RuleCacheStatus     = "cache_status"
	RuleStoreStatus     = "store_status"
)

const (
	ComponentHost     = "host"
	ComponentAPI      = "api"
	ComponentQueue    = "queue"
	ComponentRequests = "requests"
	ComponentCache    = "cache"
	ComponentStore    = "store"
)

func NumericRules() []string {
	return []string{
		RuleCPUUsage,
		RuleMemoryUsage,
		RuleDiskUsage,
		RuleAPIResponseTime,
		RuleQueueDepth,
		RuleErrorRate,
	}
}

type Threshold struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
}

type Thresholds map[string]Threshold

func (t Thresholds) Rule(name string) (Threshold, bool) {
	th, ok := t[name]
	return th, ok
}

type MetricSample struct {
	Timestamp         time.Time
	CPUPercent        float64
	MemoryPercent     float64
	DiskPercent       float64
	ActiveConnections int
	CacheStatus       Status
	StoreStatus       Status
	APIResponseMs     float64
	QueueDepth        int
	ErrorRatePercent  float64
}

type Alert struct {
	ID         string
	Type       string
	Severity   Severity
	Message    string
	Component  string
	CreatedAt  time.Time
	Resolved   bool
	ResolvedAt *time.Time
	Metadata   map[string]string
}

type DashboardSummary struct {
	Overall          string
	Timestamp        time.Time
	CPUPercent       float64
	MemoryPercent    float64
	DiskPercent      float64
	APIResponseMs    float64
	CacheStatus      Status
	StoreStatus      Status
	QueueDepth       int
	ErrorRatePercent float64
	AlertsTotal      int
	AlertsWarning    int
	AlertsCritical   int
	AlertsUnresolved int
	Window           time.Duration
}
