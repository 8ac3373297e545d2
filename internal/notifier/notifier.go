package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"vigil/internal/models"
)

type Sender interface {
	Name() string
	Send(ctx context.Context, alert models.Alert) error
}

type Dispatcher struct {
	sender Sender
	log    *slog.Logger
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: logger}
}

func (d *Dispatcher) Enabled() bool { return d.sender != nil }

// Notify makes exactly one delivery attempt. Failures are returned for
// the caller to log; the alert stays persisted either way.
func (d *Dispatcher) Notify(ctx context.Context, alert models.Alert) error {
	if d.sender == nil {
		d.log.Warn("notification skipped, no channel configured", "type", alert.Type, "severity", alert.Severity)
		return nil
	}
	if err := d.sender.Send(ctx, alert); err != nil {
		return fmt.Errorf("%s send: %w", d.sender.Name(), err)
	}
	d.log.Info("notification sent", "channel", d.sender.Name(), "type", alert.Type, "component", alert.Component)
	return nil
}

func formatAlert(a models.Alert) (subject, body string) {
	subject = fmt.Sprintf("[vigil] %s %s on %s", a.Severity, a.Type, a.Component)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.Message)
	fmt.Fprintf(&b, "alert:     %s\n", a.ID)
	fmt.Fprintf(&b, "component: %s\n", a.Component)
	fmt.Fprintf(&b, "severity:  %s\n", a.Severity)
	fmt.Fprintf(&b, "time:      %s\n", a.CreatedAt.UTC().Format(time.RFC3339))
	if len(a.Metadata) > 0 {
		keys := make([]string, 0, len(a.Metadata))
		for k := range a.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, a.Metadata[k])
		}
	}
	return subject, b.String()
}
