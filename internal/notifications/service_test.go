package notifications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pixelpress/internal/config"
	"pixelpress/internal/notifications"
)

func newTestService(t *testing.T, handler http.HandlerFunc) notifications.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return notifications.NewService(&cfg)
}

func TestNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyConversionCompleted(context.Background(), "PNG", 1024); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}

func TestConversionCompletedSendsRequest(t *testing.T) {
	var gotTitle, gotTags string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.NotifyConversionCompleted(context.Background(), "PNG", 2048); err != nil {
		t.Fatalf("NotifyConversionCompleted failed: %v", err)
	}
	if gotTitle != "Pixelpress - Converted" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotTags == "" {
		t.Fatal("expected tags header")
	}
}

func TestErrorNotificationSetsHighPriority(t *testing.T) {
	var gotPriority string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.NotifyConversionFailed(context.Background(), "encode blew up"); err != nil {
		t.Fatalf("NotifyConversionFailed failed: %v", err)
	}
	if gotPriority != "high" {
		t.Fatalf("expected high priority, got %q", gotPriority)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from failing server")
	}
}
