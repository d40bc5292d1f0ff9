package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), "Example", 3, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyJobCompleted(context.Background(), "Road Mix", 4, 1); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if captured.title != "Tonearm - Complete" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Finished: Road Mix (4 files), 1 skipped" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.tags != "tonearm,job,completed" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
	if captured.priority != "" {
		t.Fatalf("completion should use default priority, got %q", captured.priority)
	}

	if err := svc.NotifyJobFailed(context.Background(), "Road Mix", "no items could be acquired"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
	if captured.title != "Tonearm - Failed" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Failed: Road Mix\nno items could be acquired" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("failures should be high priority, got %q", captured.priority)
	}
}

func TestNtfyServiceHonoursSuppressionFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completion = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), "x", 1, 0); err != nil {
		t.Fatalf("suppressed completion returned error: %v", err)
	}
	if err := svc.NotifyJobFailed(context.Background(), "x", "boom"); err != nil {
		t.Fatalf("suppressed failure returned error: %v", err)
	}
}
