package agent

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/g4youu/MacCleaner/pkg/agent/broadcaster"
	"github.com/g4youu/MacCleaner/pkg/agent/store"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// newTestServer builds a Server around a temp store without binding a
// socket, so handlers can be exercised through echo's router directly.
func newTestServer(t *testing.T) (*Server, *store.Store, *broadcaster.Broadcaster) {
	t.Helper()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	b := broadcaster.New()
	t.Cleanup(b.Close)

	srv := &Server{
		echo:        echo.New(),
		store:       s,
		broadcaster: b,
		startedAt:   time.Now(),
		log:         logging.Get("agent"),
		shutdownCh:  make(chan struct{}),
	}
	srv.setupRoutes()

	return srv, s, b
}

func TestHandleStatusEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with empty store, got %d", rec.Code)
	}
}

func TestHandleStatusReturnsLatest(t *testing.T) {
	srv, s, _ := newTestServer(t)

	sample := types.TelemetrySample{
		TakenAt: time.Now(),
		Memory:  types.ResourceSnapshot{UsedPercent: 61},
	}
	if err := s.Append(sample); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got types.TelemetrySample
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Memory.UsedPercent != 61 {
		t.Errorf("Expected used percent 61, got %d", got.Memory.UsedPercent)
	}
}

func TestHandleHistoryLimit(t *testing.T) {
	srv, s, _ := newTestServer(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		sample := types.TelemetrySample{
			TakenAt: base.Add(time.Duration(i) * time.Minute),
			Memory:  types.ResourceSnapshot{UsedPercent: 40 + i},
		}
		if err := s.Append(sample); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/history?limit=2", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got []types.TelemetrySample
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(got))
	}

	// Newest first
	if got[0].Memory.UsedPercent != 44 || got[1].Memory.UsedPercent != 43 {
		t.Errorf("Expected newest-first [44 43], got [%d %d]",
			got[0].Memory.UsedPercent, got[1].Memory.UsedPercent)
	}
}

func TestHandleHistoryInvalidLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, raw := range []string{"abc", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/history?limit="+raw, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: expected 400, got %d", raw, rec.Code)
		}
	}
}

func TestHandleHealthz(t *testing.T) {
	srv, s, _ := newTestServer(t)

	if err := s.Append(types.TelemetrySample{TakenAt: time.Now()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health Health
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Expected status ok, got %s", health.Status)
	}
	if health.PID == 0 {
		t.Error("Expected non-zero PID")
	}
	if health.Samples != 1 {
		t.Errorf("Expected 1 sample, got %d", health.Samples)
	}
}

func TestHandleShutdownSignalsOnce(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/v1/shutdown", nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	}

	select {
	case <-srv.ShutdownRequested():
	default:
		t.Error("Expected shutdown channel to be closed")
	}
}

func TestHandleEventsStreamsSamples(t *testing.T) {
	srv, _, b := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.echo.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription to land before broadcasting.
	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.NotifySample(types.TelemetrySample{
		TakenAt: time.Now(),
		Memory:  types.ResourceSnapshot{UsedPercent: 73},
	})
	b.NotifyStartupChanged("/Library/LaunchAgents/com.example.plist")

	// Give the handler a moment to drain, then disconnect the client.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event handler did not return after client disconnect")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: sample") {
		t.Errorf("Expected sample event in stream, got: %q", body)
	}
	if !strings.Contains(body, "event: startup-changed") {
		t.Errorf("Expected startup-changed event in stream, got: %q", body)
	}
	if !strings.Contains(body, `"used_percent":73`) {
		t.Errorf("Expected sample payload in stream, got: %q", body)
	}

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream content type, got %q", ct)
	}
}

func TestServeOverUnixSocket(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Append(types.TelemetrySample{
		TakenAt: time.Now(),
		Memory:  types.ResourceSnapshot{UsedPercent: 42},
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	b := broadcaster.New()
	defer b.Close()

	dataDir := t.TempDir()
	socketPath := dataDir + "/agent.sock"

	srv, err := NewServer(Config{SocketPath: socketPath, DataDir: dataDir}, s, b)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	go func() { _ = srv.Serve() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 2 * time.Second,
	}

	// The scheme and host are ignored; the dialer pins the socket.
	resp, err := client.Get("http://agent/v1/status")
	if err != nil {
		t.Fatalf("GET /v1/status failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var sample types.TelemetrySample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if sample.Memory.UsedPercent != 42 {
		t.Errorf("Expected used percent 42, got %d", sample.Memory.UsedPercent)
	}
}
