package alerts

import (
	"reflect"
	"testing"
	"time"

	"vigil/internal/models"
)

func defaultThresholds() models.Thresholds {
	return models.Thresholds{
		models.RuleCPUUsage:        {Warning: 80, Critical: 95},
		models.RuleMemoryUsage:     {Warning: 85, Critical: 95},
		models.RuleDiskUsage:       {Warning: 85, Critical: 95},
		models.RuleAPIResponseTime: {Warning: 1000, Critical: 5000},
		models.RuleQueueDepth:      {Warning: 100, Critical: 500},
		models.RuleErrorRate:       {Warning: 5, Critical: 15},
	}
}

func healthySample() models.MetricSample {
	return models.MetricSample{
		Timestamp:         time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
		CPUPercent:        10,
		MemoryPercent:     20,
		DiskPercent:       30,
		ActiveConnections: 5,
		CacheStatus:       models.StatusConnected,
		StoreStatus:       models.StatusConnected,
		APIResponseMs:     100,
		QueueDepth:        1,
		ErrorRatePercent:  0,
	}
}

func TestEvaluateCPUBoundaries(t *testing.T) {
	cases := []struct {
		cpu  float64
		want models.Severity
	}{
		{79.9, ""},
		{80, models.SeverityWarning},
		{94.9, models.SeverityWarning},
		{95, models.SeverityCritical},
		{97, models.SeverityCritical},
	}
	for _, tc := range cases {
		sample := healthySample()
		sample.CPUPercent = tc.cpu
		alerts := Evaluate(sample, defaultThresholds())
		if tc.want == "" {
			if len(alerts) != 0 {
				t.Fatalf("cpu=%v: alerts = %d, want none", tc.cpu, len(alerts))
			}
			continue
		}
		if len(alerts) != 1 {
			t.Fatalf("cpu=%v: alerts = %d, want exactly 1", tc.cpu, len(alerts))
		}
		if alerts[0].Type != models.RuleCPUUsage || alerts[0].Severity != tc.want {
			t.Fatalf("cpu=%v: got %s/%s, want cpu_usage/%s", tc.cpu, alerts[0].Type, alerts[0].Severity, tc.want)
		}
	}
}

func TestEvaluateAllRulesFireInDeclarationOrder(t *testing.T) {
	sample := healthySample()
	sample.CPUPercent = 97
	sample.MemoryPercent = 96
	sample.DiskPercent = 99
	sample.APIResponseMs = 6000
	sample.QueueDepth = 600
	sample.ErrorRatePercent = 20
	sample.CacheStatus = models.StatusDisconnected
	sample.StoreStatus = models.StatusError

	alerts := Evaluate(sample, defaultThresholds())
	wantOrder := []string{
		models.RuleCPUUsage, models.RuleMemoryUsage, models.RuleDiskUsage,
		models.RuleAPIResponseTime, models.RuleQueueDepth, models.RuleErrorRate,
		models.RuleCacheStatus, models.RuleStoreStatus,
	}
	if len(alerts) != len(wantOrder) {
		t.Fatalf("alerts = %d, want %d", len(alerts), len(wantOrder))
	}
	for i, want := range wantOrder {
		if alerts[i].Type != want {
			t.Fatalf("alerts[%d] = %s, want %s", i, alerts[i].Type, want)
		}
		if alerts[i].Severity != models.SeverityCritical {
			t.Fatalf("alerts[%d] severity = %s, want CRITICAL", i, alerts[i].Severity)
		}
		if alerts[i].CreatedAt != sample.Timestamp {
			t.Fatalf("alerts[%d] timestamp not copied from sample", i)
		}
	}
	if alerts[0].Message != "cpu_usage [host] value=97.00 >= critical threshold 95.00" {
		t.Fatalf("message = %q", alerts[0].Message)
	}
	if alerts[0].Metadata["value"] != "97.00" || alerts[0].Metadata["threshold"] != "95.00" {
		t.Fatalf("metadata = %#v", alerts[0].Metadata)
	}
	if alerts[6].Component != models.ComponentCache || alerts[7].Component != models.ComponentStore {
		t.Fatalf("status components = %s/%s", alerts[6].Component, alerts[7].Component)
	}
}

func TestEvaluateWarningAndCriticalMutuallyExclusive(t *testing.T) {
	sample := healthySample()
	sample.MemoryPercent = 90

	alerts := Evaluate(sample, defaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].Severity != models.SeverityWarning {
		t.Fatalf("severity = %s, want WARNING", alerts[0].Severity)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	sample := healthySample()
	sample.CPUPercent = 92
	sample.CacheStatus = models.StatusDisconnected

	first := Evaluate(sample, defaultThresholds())
	second := Evaluate(sample, defaultThresholds())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input produced different output:\n%+v\n%+v", first, second)
	}
	if len(first) == 0 || first[0].ID != "" {
		t.Fatal("evaluator must not assign alert IDs")
	}
}

func TestEvaluateStatusRules(t *testing.T) {
	sample := healthySample()
	sample.StoreStatus = models.StatusError

	alerts := Evaluate(sample, defaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Type != models.RuleStoreStatus || a.Severity != models.SeverityCritical {
		t.Fatalf("got %s/%s, want store_status/CRITICAL", a.Type, a.Severity)
	}
	if a.Message != "store_status [store] status=error" {
		t.Fatalf("message = %q", a.Message)
	}
}

func TestEvaluateSkipsRulesWithoutThreshold(t *testing.T) {
	th := defaultThresholds()
	delete(th, models.RuleQueueDepth)
	sample := healthySample()
	sample.QueueDepth = 10000

	if alerts := Evaluate(sample, th); len(alerts) != 0 {
		t.Fatalf("alerts = %d, want none without a configured rule", len(alerts))
	}
}
