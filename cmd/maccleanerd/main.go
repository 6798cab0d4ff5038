// maccleanerd is the background telemetry agent. It samples system
// telemetry on an interval, persists it to an on-disk store, watches
// the LaunchAgents directories for startup-item changes and serves
// the whole lot over a Unix-socket HTTP API for the CLI and the
// dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/g4youu/MacCleaner/pkg/agent"
	"github.com/g4youu/MacCleaner/pkg/agent/broadcaster"
	"github.com/g4youu/MacCleaner/pkg/agent/store"
	"github.com/g4youu/MacCleaner/pkg/agent/watcher"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/snapshot"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// shutdownTimeout bounds the graceful HTTP drain on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "maccleanerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	socketPath := cfg.Agent.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	pidPath := cfg.Agent.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	dbPath := config.DefaultDBPath()
	statusPath := statusPathFor(socketPath)

	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       filepath.Join(config.StateDir(), "maccleanerd.log"),
		Rotation:   parseRotation(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	log := logging.Get("agent")

	if err := agent.RecoverFromStaleAgent(pidPath, socketPath, dbPath); err != nil {
		if errors.Is(err, agent.ErrAgentAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "maccleanerd is already running")
			os.Exit(1)
		}
		writeStartupError(statusPath, err)
		return fmt.Errorf("stale agent recovery: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		writeStartupError(statusPath, err)
		return fmt.Errorf("open telemetry store: %w", err)
	}
	defer st.Close()

	bcast := broadcaster.New()
	defer bcast.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The watcher is best effort: the agent still samples and serves
	// without startup-changed events.
	if w, err := watcher.New(bcast); err != nil {
		log.Warn("launch agent watcher unavailable", "error", err)
	} else {
		w.WatchAll(watcher.DefaultPaths())
		go w.Run(ctx)
		defer w.Close()
	}

	interval := cfg.Agent.SampleInterval
	if interval <= 0 {
		interval = cfg.RefreshInterval
	}
	sampler := agent.NewSampler(snapshot.NewReader(), st, bcast, interval, cfg.Agent.Retention)
	go sampler.Run(ctx)

	srv, err := agent.NewServer(agent.Config{
		SocketPath: socketPath,
		DataDir:    config.DataDir(),
	}, st, bcast)
	if err != nil {
		writeStartupError(statusPath, err)
		return fmt.Errorf("create server: %w", err)
	}

	if err := agent.WritePIDFile(pidPath); err != nil {
		writeStartupError(statusPath, err)
		return fmt.Errorf("write PID file: %w", err)
	}
	defer func() {
		if err := agent.RemovePIDFile(pidPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
	}()

	if err := agent.WriteStatusReady(statusPath); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	defer func() {
		if err := agent.RemoveStatus(statusPath); err != nil {
			log.Warn("failed to remove status file", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
		case <-srv.ShutdownRequested():
			log.Info("shutting down", "reason", "shutdown request")
		case <-ctx.Done():
			return
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}()

	log.Info("maccleanerd starting", "socket", socketPath, "pid", os.Getpid(), "interval", interval.String())

	if err := srv.Serve(); err != nil {
		writeStartupError(statusPath, err)
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("maccleanerd stopped")
	return nil
}

// statusPathFor derives the startup status file from the socket path,
// the same way the client does when it polls agent startup.
func statusPathFor(socketPath string) string {
	if strings.HasSuffix(socketPath, ".sock") {
		return strings.TrimSuffix(socketPath, ".sock") + ".status"
	}
	return agent.StatusPath(filepath.Dir(socketPath))
}

// writeStartupError records a startup failure where a waiting client
// can see it. Best effort: the error is already on its way to stderr.
func writeStartupError(statusPath string, err error) {
	if werr := agent.WriteStatusError(statusPath, err); werr != nil {
		logging.Get("agent").Warn("failed to write status file", "error", werr)
	}
}

// parseRotation maps the string-valued config rotation block onto the
// logging package's byte-counted one. Unparseable or missing sizes
// fall back to the default cap.
func parseRotation(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	if rc.MaxSize != "" {
		if size, err := types.ParseSize(rc.MaxSize); err == nil {
			out.MaxSize = size
		}
	}
	if rc.MaxAge > 0 {
		out.MaxAge = rc.MaxAge
	}
	if rc.MaxBackups > 0 {
		out.MaxBackups = rc.MaxBackups
	}
	out.Daily = rc.Daily
	return out
}
