// Package client connects to the maccleanerd telemetry agent over its
// Unix socket. It wraps the agent's HTTP API with typed methods and
// manages the agent process lifecycle for the CLI.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// baseURL is a placeholder host; the transport dials the Unix socket and
// ignores it.
const baseURL = "http://maccleanerd"

// ErrNoTelemetry reports that the agent is up but has not recorded a
// sample yet.
var ErrNoTelemetry = errors.New("agent has no telemetry samples yet")

// Client talks to the maccleanerd agent via HTTP over a Unix socket.
type Client struct {
	httpc      *http.Client
	socketPath string
}

// AgentHealth mirrors the agent's /v1/healthz payload.
type AgentHealth struct {
	Status      string `json:"status"`
	PID         int    `json:"pid"`
	Uptime      string `json:"uptime"`
	Samples     int    `json:"samples"`
	Subscribers int    `json:"subscribers"`
}

// Event types delivered on the agent's event stream.
const (
	EventSample         = "sample"
	EventStartupChanged = "startup-changed"
)

// Event is one message from the agent's event stream.
type Event struct {
	Type   string                 `json:"type"`
	Sample *types.TelemetrySample `json:"sample,omitempty"`
	Path   string                 `json:"path,omitempty"`
}

// AgentPaths configures paths for agent operations.
// Empty fields use defaults.
type AgentPaths struct {
	Binary string // Path to maccleanerd binary (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p AgentPaths) withDefaults() AgentPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// Connect establishes a connection to the maccleanerd agent.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the maccleanerd agent
// with a custom context. The agent is pinged once so a dead socket fails
// here rather than on the first query.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("agent socket not found at %s", socketPath)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	// No client-wide timeout: the event stream stays open indefinitely,
	// so deadlines come from per-call contexts.
	c := &Client{
		httpc:      &http.Client{Transport: transport},
		socketPath: socketPath,
	}

	if _, err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to agent: %w", err)
	}
	return c, nil
}

// Close releases pooled connections to the agent.
func (c *Client) Close() error {
	if c.httpc != nil {
		c.httpc.CloseIdleConnections()
	}
	return nil
}

// apiError is a non-200 response from the agent.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("agent returned %d: %s", e.Code, e.Message)
}

// readAPIError decodes the agent's {"error": ...} body. The body is
// consumed either way.
func readAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &apiError{Code: resp.StatusCode, Message: body.Error}
}

// get performs a GET and decodes a 200 response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status returns the agent's latest telemetry sample.
func (c *Client) Status(ctx context.Context) (types.TelemetrySample, error) {
	var sample types.TelemetrySample
	err := c.get(ctx, "/v1/status", &sample)
	var ae *apiError
	if errors.As(err, &ae) && ae.Code == http.StatusNotFound {
		return sample, ErrNoTelemetry
	}
	return sample, err
}

// History returns up to limit recent samples, newest first. A limit of
// zero asks for the agent's default window.
func (c *Client) History(ctx context.Context, limit int) ([]types.TelemetrySample, error) {
	path := "/v1/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var samples []types.TelemetrySample
	if err := c.get(ctx, path, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Health returns the agent's liveness report.
func (c *Client) Health(ctx context.Context) (*AgentHealth, error) {
	var health AgentHealth
	if err := c.get(ctx, "/v1/healthz", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Shutdown asks the agent to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/shutdown", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("shutdown request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return nil
}

// Events subscribes to the agent's event stream. The returned channel
// receives events until the context is cancelled or the agent closes
// the stream.
func (c *Client) Events(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	events := make(chan Event, 100)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && data != "":
				var event Event
				if err := json.Unmarshal([]byte(data), &event); err == nil {
					select {
					case events <- event:
					case <-ctx.Done():
						return
					}
				}
				data = ""
			}
		}
	}()

	return events, nil
}

// EnsureAgent ensures the agent is running, starting it if necessary.
// Idempotent: returns nil if the agent is already running.
func EnsureAgent(paths AgentPaths) error {
	return StartAgent(paths)
}

// StartAgent starts the maccleanerd agent in the background.
// Idempotent: returns nil if the agent is already running.
func StartAgent(paths AgentPaths) error {
	paths = paths.withDefaults()

	if IsAgentRunning(paths.PID) {
		return nil // Already running, nothing to do
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find maccleanerd: %w", err)
	}

	// Derive status path from socket path
	statusPath := strings.TrimSuffix(paths.Socket, ".sock") + ".status"

	// Clean up stale status file before starting
	_ = os.Remove(statusPath)

	// Use exec.Command (not CommandContext) intentionally: agent must outlive caller
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	// Detach so the agent outlives the caller
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for socket OR status file
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		// Check socket first (success fast path)
		if _, err := os.Stat(paths.Socket); err == nil {
			return nil
		}

		// Check status file for explicit ready or error
		if status, err := readStatusFile(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("agent failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("agent did not become ready within timeout")
}

// StopAgent stops the agent gracefully via its API.
// Idempotent: returns nil if the agent is not running.
func StopAgent(paths AgentPaths) error {
	paths = paths.withDefaults()

	if !IsAgentRunning(paths.PID) {
		return nil // Not running, nothing to do
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to agent: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown agent: %w", err)
	}

	// Wait for the agent to stop
	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsAgentRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("agent did not stop within timeout")
}

// RestartAgent stops and starts the agent.
func RestartAgent(paths AgentPaths) error {
	if err := StopAgent(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartAgent(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the maccleanerd binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	// Use configured path if provided
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	// Try same directory as current executable
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "maccleanerd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Try standard Go binary locations (GOBIN > GOPATH/bin > $HOME/go/bin)
	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	// Try PATH
	if path, err := exec.LookPath("maccleanerd"); err == nil {
		return path, nil
	}

	return "", errors.New("maccleanerd not found")
}

// IsAgentRunning checks if the agent is running based on the PID file.
func IsAgentRunning(pidPath string) bool {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return false
	}

	// Check if process exists
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// readPIDFile reads a PID from a file.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// statusFile represents the agent startup status file.
type statusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

// readStatusFile reads and parses the agent status file.
func readStatusFile(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status statusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
