package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"mxf2proxy/internal/config"
)

const userAgent = "mxf2proxy/0.1.0"

// BatchSummary describes a finished batch.
type BatchSummary struct {
	Source      string
	Destination string
	Succeeded   int
	Failed      int
	Skipped     int
	// Reason is the abort cause; empty for completed batches.
	Reason string
}

// Service defines the notification surface.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error
	NotifyBatchAborted(ctx context.Context, summary BatchSummary) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		batchComplete: cfg.Notifications.BatchComplete,
		batchAborted:  cfg.Notifications.BatchAborted,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	batchComplete bool
	batchAborted  bool
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error {
	if !n.batchComplete {
		return nil
	}
	name := filepath.Base(strings.TrimSpace(summary.Source))
	title := "mxf2proxy - Proxies Ready"
	message := fmt.Sprintf("✅ %s: %d converted", name, summary.Succeeded)
	tags := []string{"mxf2proxy", "batch", "completed"}
	if summary.Failed > 0 {
		title = "mxf2proxy - Proxies Ready (with errors)"
		message = fmt.Sprintf("⚠️ %s: %d converted, %d failed", name, summary.Succeeded, summary.Failed)
		tags = []string{"mxf2proxy", "batch", "warning"}
	}
	if summary.Skipped > 0 {
		message = fmt.Sprintf("%s, %d skipped", message, summary.Skipped)
	}
	if dest := strings.TrimSpace(summary.Destination); dest != "" {
		message = fmt.Sprintf("%s\nFolder: %s", message, dest)
	}
	return n.send(ctx, payload{title: title, message: message, tags: tags})
}

func (n *ntfyService) NotifyBatchAborted(ctx context.Context, summary BatchSummary) error {
	if !n.batchAborted {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Batch aborted: ")
	builder.WriteString(filepath.Base(strings.TrimSpace(summary.Source)))
	if reason := strings.TrimSpace(summary.Reason); reason != "" {
		builder.WriteString("\n")
		builder.WriteString(reason)
	}
	return n.send(ctx, payload{
		title:    "mxf2proxy - Batch Aborted",
		message:  builder.String(),
		tags:     []string{"mxf2proxy", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "mxf2proxy - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"mxf2proxy", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, BatchSummary) error { return nil }
func (noopService) NotifyBatchAborted(context.Context, BatchSummary) error   { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
