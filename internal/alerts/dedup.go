package alerts

import (
	"sync"
	"time"

	"vigil/internal/models"
)

type dedupKey struct {
	Type      string
	Component string
	Severity  models.Severity
}

// dedupWindow suppresses repeats of (type, component, severity) until
// their recorded expiry. Severity is part of the key so an escalation
// from WARNING to CRITICAL is never swallowed.
type dedupWindow struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[dedupKey]time.Time
}

func newDedupWindow(window time.Duration) *dedupWindow {
	return &dedupWindow{
		window:  window,
		entries: make(map[dedupKey]time.Time),
	}
}

// Seen reports whether an equivalent alert is still inside the window;
// a miss records the alert until now+window.
func (d *dedupWindow) Seen(a models.Alert, now time.Time) bool {
	key := dedupKey{Type: a.Type, Component: a.Component, Severity: a.Severity}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evict(now)
	if _, ok := d.entries[key]; ok {
		return true
	}
	d.entries[key] = now.Add(d.window)
	return false
}

func (d *dedupWindow) Evict(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evict(now)
}

// entries expire at exactly their deadline: expiry <= now goes away.
func (d *dedupWindow) evict(now time.Time) {
	for key, expiry := range d.entries {
		if !expiry.After(now) {
			delete(d.entries, key)
		}
	}
}
