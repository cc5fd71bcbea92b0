package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchCompleted(context.Background(), 3, 0, time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "batch started",
			send: func(svc notifications.Service) error {
				return svc.NotifyBatchStarted(context.Background(), 4)
			},
			expectTitle:   "Scribe - Batch Started",
			expectMessage: "Started transcribing 4 files",
			expectTags:    "scribe,batch,started",
		},
		{
			name: "batch completed clean",
			send: func(svc notifications.Service) error {
				return svc.NotifyBatchCompleted(context.Background(), 4, 0, 150*time.Second)
			},
			expectTitle:   "Scribe - Batch Complete",
			expectMessage: "Transcribed 4 files in 2m30s",
			expectTags:    "scribe,batch,completed",
		},
		{
			name: "batch completed with errors",
			send: func(svc notifications.Service) error {
				return svc.NotifyBatchCompleted(context.Background(), 3, 1, 90*time.Second)
			},
			expectTitle:   "Scribe - Batch Complete (with errors)",
			expectMessage: "Transcription finished: 3 succeeded, 1 failed in 1m30s",
			expectTags:    "scribe,batch,completed",
		},
		{
			name: "job failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyJobFailed(context.Background(), "lecture.mp3", "timeout")
			},
			expectTitle:    "Scribe - Job Failed",
			expectMessage:  "Transcription failed: lecture.mp3 (timeout)",
			expectTags:     "scribe,job,failed",
			expectPriority: "high",
		},
		{
			name: "test notification",
			send: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Scribe - Test",
			expectMessage:  "Notification system test",
			expectTags:     "scribe,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
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
			cfg.NtfyTopic = server.URL

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchStarted(context.Background(), 1); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
