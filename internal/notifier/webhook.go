package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vigil/internal/models"
)

type Webhook struct {
	URL  string
	HTTP *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, alert models.Alert) error {
	subject, _ := formatAlert(alert)
	payload := map[string]any{
		"subject":    subject,
		"id":         alert.ID,
		"type":       alert.Type,
		"severity":   string(alert.Severity),
		"message":    alert.Message,
		"component":  alert.Component,
		"created_at": alert.CreatedAt.UTC().Format(time.RFC3339),
		"metadata":   alert.Metadata,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := w.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	resp, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	if res.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d: %s", res.StatusCode, string(resp))
	}
	return nil
}
