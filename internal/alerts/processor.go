package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"vigil/internal/models"
	"vigil/internal/notifier"
	"vigil/internal/store"
)

type Processor struct {
	store    *store.Store
	dispatch *notifier.Dispatcher
	dedup    *dedupWindow
	seq      atomic.Uint64
	log      *slog.Logger
	now      func() time.Time
}

func NewProcessor(st *store.Store, dispatch *notifier.Dispatcher, window time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		store:    st,
		dispatch: dispatch,
		dedup:    newDedupWindow(window),
		log:      logger,
		now:      time.Now,
	}
}

// Process runs one alert through dedup, persistence and notification.
// Suppressed duplicates consume no sequence numbers. Persistence always
// precedes notification; a notification failure leaves the alert stored.
func (p *Processor) Process(ctx context.Context, alert models.Alert) {
	now := p.now().UTC()
	if p.dedup.Seen(alert, now) {
		p.log.Debug("alert suppressed",
			"type", alert.Type, "component", alert.Component, "severity", alert.Severity)
		return
	}
	alert.ID = fmt.Sprintf("%s:%s:%d", alert.Type, alert.Component, p.seq.Add(1))

	if err := p.store.AppendAlert(ctx, alert); err != nil {
		p.log.Error("persist alert", "id", alert.ID, "err", err)
		return
	}
	p.log.Info("alert persisted",
		"id", alert.ID, "severity", alert.Severity, "message", alert.Message)

	if alert.Severity != models.SeverityCritical {
		return
	}
	if err := p.dispatch.Notify(ctx, alert); err != nil {
		p.log.Warn("notify failed", "id", alert.ID, "err", err)
	}
}

func (p *Processor) Housekeep(now time.Time) {
	p.dedup.Evict(now)
}
