package errorrate

import (
	"strings"
	"sync"
	"time"
)

type Window struct {
	mu      sync.Mutex
	span    time.Duration
	now     func() time.Time
	buckets map[int64]*bucket
}

type bucket struct {
	total  int
	errors int
}

func NewWindow(span time.Duration) *Window {
	if span < time.Second {
		span = time.Second
	}
	return &Window{
		span:    span,
		now:     time.Now,
		buckets: make(map[int64]*bucket),
	}
}

func (w *Window) Observe(isError bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sec := w.now().Unix()
	w.prune(sec)
	b := w.buckets[sec]
	if b == nil {
		b = &bucket{}
		w.buckets[sec] = b
	}
	b.total++
	if isError {
		b.errors++
	}
}

func (w *Window) ObserveLine(line string) {
	w.Observe(IsErrorLine(line))
}

func (w *Window) Rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	sec := w.now().Unix()
	w.prune(sec)
	var total, errs int
	for _, b := range w.buckets {
		total += b.total
		errs += b.errors
	}
	if total == 0 {
		return 0
	}
	return float64(errs) / float64(total) * 100
}

func (w *Window) prune(nowSec int64) {
	cutoff := nowSec - int64(w.span/time.Second)
	for sec := range w.buckets {
		if sec <= cutoff {
			delete(w.buckets, sec)
		}
	}
}

func IsErrorLine(line string) bool {
	u := strings.ToUpper(line)
	switch {
	case strings.Contains(u, "ERROR"), strings.Contains(u, "FATAL"), strings.Contains(u, "PANIC"):
		return true
	default:
		return false
	}
}
