package alerts

import (
	"testing"
	"time"

	"vigil/internal/models"
)

func TestDedupSuppressesRepeatWithinWindow(t *testing.T) {
	d := newDedupWindow(5 * time.Minute)
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	alert := models.Alert{Type: models.RuleCPUUsage, Component: models.ComponentHost, Severity: models.SeverityWarning}

	if d.Seen(alert, base) {
		t.Fatal("first occurrence reported as seen")
	}
	if !d.Seen(alert, base.Add(4*time.Minute+59*time.Second)) {
		t.Fatal("repeat inside the window not suppressed")
	}
}

func TestDedupExpiresExactlyAtWindowBoundary(t *testing.T) {
	d := newDedupWindow(5 * time.Minute)
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	alert := models.Alert{Type: models.RuleMemoryUsage, Component: models.ComponentHost, Severity: models.SeverityCritical}

	d.Seen(alert, base)
	if d.Seen(alert, base.Add(5*time.Minute)) {
		t.Fatal("entry at its expiry instant still suppressing")
	}
}

func TestDedupSeverityEscalationNotSuppressed(t *testing.T) {
	d := newDedupWindow(5 * time.Minute)
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	warning := models.Alert{Type: models.RuleDiskUsage, Component: models.ComponentHost, Severity: models.SeverityWarning}
	critical := warning
	critical.Severity = models.SeverityCritical

	d.Seen(warning, base)
	if d.Seen(critical, base.Add(time.Minute)) {
		t.Fatal("escalation to CRITICAL suppressed by the WARNING entry")
	}
	if !d.Seen(warning, base.Add(2*time.Minute)) {
		t.Fatal("WARNING entry lost after recording the CRITICAL one")
	}
}

func TestDedupEvictRemovesOnlyExpiredEntries(t *testing.T) {
	d := newDedupWindow(5 * time.Minute)
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	old := models.Alert{Type: models.RuleCPUUsage, Component: models.ComponentHost, Severity: models.SeverityWarning}
	fresh := models.Alert{Type: models.RuleQueueDepth, Component: models.ComponentQueue, Severity: models.SeverityWarning}

	d.Seen(old, base)
	d.Seen(fresh, base.Add(3*time.Minute))
	d.Evict(base.Add(5 * time.Minute))

	if d.Seen(old, base.Add(5*time.Minute)) {
		t.Fatal("expired entry survived eviction")
	}
	if !d.Seen(fresh, base.Add(5*time.Minute)) {
		t.Fatal("live entry evicted early")
	}
}
