package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pixelpress/internal/config"
)

const userAgent = "pixelpress/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyConversionCompleted(ctx context.Context, format string, outputBytes int) error
	NotifyConversionFailed(ctx context.Context, reason string) error
	NotifyPurchaseCompleted(ctx context.Context, productID string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		conversions: cfg.Notifications.Conversion,
		purchases:   cfg.Notifications.Purchases,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	conversions bool
	purchases   bool
	errors      bool
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, format string, outputBytes int) error {
	if !n.conversions {
		return nil
	}
	data := payload{
		title:   "Pixelpress - Converted",
		message: fmt.Sprintf("Conversion complete: %s (%d bytes)", strings.TrimSpace(format), outputBytes),
		tags:    []string{"pixelpress", "convert", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionFailed(ctx context.Context, reason string) error {
	if !n.conversions {
		return nil
	}
	data := payload{
		title:    "Pixelpress - Conversion Failed",
		message:  fmt.Sprintf("Conversion failed: %s", strings.TrimSpace(reason)),
		tags:     []string{"pixelpress", "convert", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPurchaseCompleted(ctx context.Context, productID string) error {
	if !n.purchases {
		return nil
	}
	data := payload{
		title:   "Pixelpress - Purchase",
		message: fmt.Sprintf("Purchase verified: %s", strings.TrimSpace(productID)),
		tags:    []string{"pixelpress", "purchase", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Pixelpress - Error",
		message:  builder.String(),
		tags:     []string{"pixelpress", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Pixelpress - Test",
		message:  "Notification system test",
		tags:     []string{"pixelpress", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyConversionCompleted(context.Context, string, int) error { return nil }

func (noopService) NotifyConversionFailed(context.Context, string) error { return nil }

func (noopService) NotifyPurchaseCompleted(context.Context, string) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
