package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"svoextract/internal/config"
)

const userAgent = "svoextract/0.1.0"

// JobEvent describes a finished extraction job.
type JobEvent struct {
	JobID      int64
	Recordings int
	Artifacts  int
	Duration   time.Duration
	BundlePath string
	Error      string
}

// Service defines the notification surface used by the workflow.
type Service interface {
	NotifyJobCompleted(ctx context.Context, event JobEvent) error
	NotifyJobFailed(ctx context.Context, event JobEvent) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, event JobEvent) error {
	message := fmt.Sprintf("Job %d complete: %d recording(s), %d file(s) in %s",
		event.JobID, event.Recordings, event.Artifacts, formatDuration(event.Duration))
	if event.BundlePath != "" {
		message += "\nBundle: " + event.BundlePath
	}
	return n.send(ctx, payload{
		title:   "svoextract - Job Complete",
		message: message,
		tags:    []string{"svoextract", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, event JobEvent) error {
	reason := strings.TrimSpace(event.Error)
	if reason == "" {
		reason = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "svoextract - Job Failed",
		message:  fmt.Sprintf("Job %d failed after %s: %s", event.JobID, formatDuration(event.Duration), reason),
		tags:     []string{"svoextract", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "svoextract - Test",
		message:  "Notification system test",
		tags:     []string{"svoextract", "test"},
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

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, JobEvent) error { return nil }
func (noopService) NotifyJobFailed(context.Context, JobEvent) error    { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
