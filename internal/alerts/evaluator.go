package alerts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vigil/internal/models"
)

type numericRule struct {
	name      string
	component string
	value     func(models.MetricSample) float64
}

type statusRule struct {
	name      string
	component string
	status    func(models.MetricSample) models.Status
}

// Rule declaration order fixes the output order of Evaluate.
var numericRules = []numericRule{
	{models.RuleCPUUsage, models.ComponentHost, func(m models.MetricSample) float64 { return m.CPUPercent }},
	{models.RuleMemoryUsage, models.ComponentHost, func(m models.MetricSample) float64 { return m.MemoryPercent }},
	{models.RuleDiskUsage, models.ComponentHost, func(m models.MetricSample) float64 { return m.DiskPercent }},
	{models.RuleAPIResponseTime, models.ComponentAPI, func(m models.MetricSample) float64 { return m.APIResponseMs }},
	{models.RuleQueueDepth, models.ComponentQueue, func(m models.MetricSample) float64 { return float64(m.QueueDepth) }},
	{models.RuleErrorRate, models.ComponentRequests, func(m models.MetricSample) float64 { return m.ErrorRatePercent }},
}

var statusRules = []statusRule{
	{models.RuleCacheStatus, models.ComponentCache, func(m models.MetricSample) models.Status { return m.CacheStatus }},
	{models.RuleStoreStatus, models.ComponentStore, func(m models.MetricSample) models.Status { return m.StoreStatus }},
}

// Evaluate is a pure function of the sample and thresholds: no clock,
// no I/O. At most one alert per rule; critical wins over warning.
// Returned alerts carry no ID, the processor assigns one on acceptance.
func Evaluate(sample models.MetricSample, thresholds models.Thresholds) []models.Alert {
	var out []models.Alert
	for _, r := range numericRules {
		th, ok := thresholds.Rule(r.name)
		if !ok {
			continue
		}
		value := r.value(sample)
		if math.IsNaN(value) {
			continue
		}
		var severity models.Severity
		var bound float64
		switch {
		case value >= th.Critical:
			severity, bound = models.SeverityCritical, th.Critical
		case value >= th.Warning:
			severity, bound = models.SeverityWarning, th.Warning
		default:
			continue
		}
		out = append(out, models.Alert{
			Type:      r.name,
			Severity:  severity,
			Message:   fmt.Sprintf("%s [%s] value=%.2f >= %s threshold %.2f", r.name, r.component, value, strings.ToLower(string(severity)), bound),
			Component: r.component,
			CreatedAt: sample.Timestamp,
			Metadata: map[string]string{
				"value":     strconv.FormatFloat(value, 'f', 2, 64),
				"threshold": strconv.FormatFloat(bound, 'f', 2, 64),
			},
		})
	}
	for _, r := range statusRules {
		status := r.status(sample)
		if status == models.StatusConnected {
			continue
		}
		out = append(out, models.Alert{
			Type:      r.name,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("%s [%s] status=%s", r.name, r.component, status),
			Component: r.component,
			CreatedAt: sample.Timestamp,
			Metadata:  map[string]string{"status": string(status)},
		})
	}
	return out
}
