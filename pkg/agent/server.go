// Package agent implements the maccleanerd background agent: a
// telemetry sampler, a startup-item watcher and an HTTP API served
// over a Unix domain socket. The CLI and the dashboard talk to it
// through pkg/client.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/g4youu/MacCleaner/pkg/agent/broadcaster"
	"github.com/g4youu/MacCleaner/pkg/agent/store"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// DefaultHistoryLimit is how many samples /v1/history returns when the
// client does not pass a limit.
const DefaultHistoryLimit = 60

// Config holds agent server configuration.
type Config struct {
	SocketPath string
	DataDir    string
}

// Server is the maccleanerd HTTP server. It exposes the telemetry
// store and the event stream on a Unix socket; there is no TCP
// listener.
type Server struct {
	cfg         Config
	echo        *echo.Echo
	listener    net.Listener
	store       *store.Store
	broadcaster *broadcaster.Broadcaster
	startedAt   time.Time
	log         *logging.Logger

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewServer creates the agent server and binds its Unix socket.
func NewServer(cfg Config, s *store.Store, b *broadcaster.Broadcaster) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	// The socket carries telemetry for this user only.
	if err := os.Chmod(cfg.SocketPath, 0o600); err != nil {
		listener.Close()
		return nil, err
	}

	srv := &Server{
		cfg:         cfg,
		echo:        echo.New(),
		listener:    listener,
		store:       s,
		broadcaster: b,
		startedAt:   time.Now(),
		log:         logging.Get("agent"),
		shutdownCh:  make(chan struct{}),
	}

	srv.setupRoutes()
	return srv, nil
}

// setupRoutes configures the echo instance and the API routes.
func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())

	s.echo.GET("/v1/status", s.handleStatus)
	s.echo.GET("/v1/history", s.handleHistory)
	s.echo.GET("/v1/events", s.handleEvents)
	s.echo.GET("/v1/healthz", s.handleHealthz)
	s.echo.POST("/v1/shutdown", s.handleShutdown)
}

// Serve starts the HTTP server on the Unix socket. Blocks until
// Shutdown is called.
func (s *Server) Serve() error {
	s.log.Info("agent listening", "socket", s.cfg.SocketPath)

	s.echo.Listener = s.listener
	err := s.echo.Start("")
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and removes the socket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if removeErr := os.RemoveAll(s.cfg.SocketPath); removeErr != nil && err == nil {
		err = removeErr
	}
	return err
}

// ShutdownRequested is closed when a client posts /v1/shutdown. The
// agent main loop waits on it alongside OS signals.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// handleStatus returns the latest telemetry sample.
func (s *Server) handleStatus(c echo.Context) error {
	sample, err := s.store.Latest()
	if err != nil {
		if errors.Is(err, store.ErrNoSamples) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "no samples recorded yet",
			})
		}
		s.log.Error("failed to read latest sample", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read latest sample",
		})
	}

	return c.JSON(http.StatusOK, sample)
}

// handleHistory returns recent samples, newest first.
func (s *Server) handleHistory(c echo.Context) error {
	limit := DefaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid limit",
			})
		}
		limit = parsed
	}

	samples, err := s.store.Recent(limit)
	if err != nil {
		s.log.Error("failed to read history", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read history",
		})
	}

	return c.JSON(http.StatusOK, samples)
}

// handleEvents streams agent events as server-sent events until the
// client disconnects.
func (s *Server) handleEvents(c echo.Context) error {
	sub := s.broadcaster.Subscribe()
	if sub == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "agent shutting down",
		})
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	s.log.Debug("event stream opened", "subscriber", sub.ID)

	for {
		select {
		case <-c.Request().Context().Done():
			s.log.Debug("event stream closed", "subscriber", sub.ID)
			return nil

		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := writeSSE(res, event); err != nil {
				return nil //nolint:nilerr // client went away mid-write
			}
			res.Flush()
		}
	}
}

// writeSSE writes one event in text/event-stream framing.
func writeSSE(res *echo.Response, event broadcaster.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}

// Health reports agent liveness for /v1/healthz.
type Health struct {
	Status      string `json:"status"`
	PID         int    `json:"pid"`
	Uptime      string `json:"uptime"`
	Samples     int    `json:"samples"`
	Subscribers int    `json:"subscribers"`
}

// handleHealthz returns agent liveness and store counters.
func (s *Server) handleHealthz(c echo.Context) error {
	samples, err := s.store.Count()
	if err != nil {
		s.log.Error("failed to count samples", "error", err)
	}

	return c.JSON(http.StatusOK, Health{
		Status:      "ok",
		PID:         os.Getpid(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Samples:     samples,
		Subscribers: s.broadcaster.SubscriberCount(),
	})
}

// handleShutdown acknowledges the request, then signals the main loop.
func (s *Server) handleShutdown(c echo.Context) error {
	s.log.Info("shutdown requested via API")

	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}
