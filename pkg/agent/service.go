package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// ServiceLabel identifies the launchd job that keeps maccleanerd running.
const ServiceLabel = "com.g4youu.maccleanerd"

// ErrServiceNotInstalled reports that no launchd definition exists for the agent.
var ErrServiceNotInstalled = errors.New("agent service not installed")

// launchctlTimeout bounds every launchctl invocation.
const launchctlTimeout = 30 * time.Second

// Runner executes a command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// launchdPlist is the job definition written into ~/Library/LaunchAgents.
// KeepAlive restarts the agent after crashes but lets clean exits stand,
// so `maccleaner agent stop` actually stops it.
var launchdPlist = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.Binary}}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
	<key>ProcessType</key>
	<string>Background</string>
	<key>ThrottleInterval</key>
	<integer>10</integer>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}</string>
</dict>
</plist>
`))

type plistData struct {
	Label   string
	Binary  string
	LogPath string
}

// Service installs and removes the launchd job definition so the agent
// starts at login and survives crashes.
type Service struct {
	run       Runner
	agentsDir string
	logPath   string
	log       *logging.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRunner substitutes the command runner.
func WithRunner(r Runner) ServiceOption {
	return func(s *Service) { s.run = r }
}

// NewService returns a Service over the user's LaunchAgents directory.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		run:     execRunner{},
		logPath: filepath.Join(config.StateDir(), "maccleanerd.log"),
		log:     logging.Get("agent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlistPath returns the on-disk location of the job definition.
func (s *Service) PlistPath() (string, error) {
	if s.agentsDir != "" {
		return filepath.Join(s.agentsDir, ServiceLabel+".plist"), nil
	}
	dir, err := config.ExpandPath("~/Library/LaunchAgents")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ServiceLabel+".plist"), nil
}

// Installed reports whether a job definition exists on disk.
func (s *Service) Installed() (bool, error) {
	path, err := s.PlistPath()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		return false, nil //nolint:nilerr // absent plist means not installed
	}
	return true, nil
}

// Install writes the job definition pointing at the given maccleanerd
// binary and loads it. Reinstalling over an existing definition reloads
// it so launchd picks up the new binary path.
func (s *Service) Install(ctx context.Context, binary string) error {
	if binary == "" {
		return errors.New("agent binary path is empty")
	}
	abs, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("resolving agent binary: %w", err)
	}

	path, err := s.PlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}

	var buf bytes.Buffer
	data := plistData{Label: ServiceLabel, Binary: abs, LogPath: s.logPath}
	if err := launchdPlist.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering launchd plist: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing launchd plist: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, launchctlTimeout)
	defer cancel()

	// Best effort: a stale registration from a previous install would
	// keep launchd on the old definition.
	_, _ = s.run.Output(cctx, "launchctl", "unload", path)

	if _, err := s.run.Output(cctx, "launchctl", "load", "-w", path); err != nil {
		return fmt.Errorf("launchctl load %s: %w", path, err)
	}
	s.log.Info("agent service installed", "label", ServiceLabel, "binary", abs)
	return nil
}

// Uninstall unloads the job and removes its definition.
func (s *Service) Uninstall(ctx context.Context) error {
	path, err := s.PlistPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrServiceNotInstalled, path)
	}

	cctx, cancel := context.WithTimeout(ctx, launchctlTimeout)
	defer cancel()

	// The job may already be unloaded; removal of the plist is what
	// makes the uninstall stick.
	if _, err := s.run.Output(cctx, "launchctl", "unload", "-w", path); err != nil {
		s.log.Warn("launchctl unload failed", "path", path, "error", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing launchd plist: %w", err)
	}
	s.log.Info("agent service uninstalled", "label", ServiceLabel)
	return nil
}
