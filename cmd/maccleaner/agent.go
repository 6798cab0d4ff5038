package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/agent"
	"github.com/g4youu/MacCleaner/pkg/client"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
)

func newAgentCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the maccleanerd agent",
		Long: `Manage the maccleanerd background agent.

The agent samples system telemetry so status and the dashboard answer
instantly, keeps a short history, and watches the launchd directories
for new startup items.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Start the agent in the background",
			RunE:  a.runAgentStart,
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the agent gracefully",
			RunE:  a.runAgentStop,
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Stop and start the agent",
			RunE:  a.runAgentRestart,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show agent status",
			RunE:  a.runAgentStatus,
		},
		&cobra.Command{
			Use:   "install",
			Short: "Install the agent as a launchd service",
			Long: `Install a launchd agent so maccleanerd starts at login and is kept
alive. The plist lands in ~/Library/LaunchAgents.`,
			RunE: a.runAgentInstall,
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Remove the launchd service",
			RunE:  a.runAgentUninstall,
		},
	)

	return cmd
}

// agentPIDPath is the PID file location, configured or default.
func (a *App) agentPIDPath() string {
	if p := a.agentPaths().PID; p != "" {
		return p
	}
	return config.DefaultPIDPath()
}

func (a *App) runAgentStart(_ *cobra.Command, _ []string) error {
	if client.IsAgentRunning(a.agentPIDPath()) {
		a.printInfo("Agent is already running")
		return nil
	}

	a.printVerbose("starting agent...")
	if err := client.StartAgent(a.agentPaths()); err != nil {
		return err
	}
	a.printInfo("Agent started")
	return nil
}

func (a *App) runAgentStop(_ *cobra.Command, _ []string) error {
	if !client.IsAgentRunning(a.agentPIDPath()) {
		a.printInfo("Agent is not running")
		return nil
	}

	a.printVerbose("stopping agent...")
	if err := client.StopAgent(a.agentPaths()); err != nil {
		return err
	}
	a.printInfo("Agent stopped")
	return nil
}

func (a *App) runAgentRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartAgent(a.agentPaths()); err != nil {
		return err
	}
	a.printInfo("Agent restarted")
	return nil
}

func (a *App) runAgentStatus(_ *cobra.Command, _ []string) error {
	if !client.IsAgentRunning(a.agentPIDPath()) {
		doc := &output.Document{Title: "Agent"}
		doc.AddSection("", output.Fact{Label: "State", Value: "not running", Status: output.StatusWarn})
		return a.render(doc)
	}

	socket := a.agentPaths().Socket
	if socket == "" {
		socket = config.DefaultSocketPath()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.ConnectWithContext(ctx, socket)
	if err != nil {
		doc := &output.Document{Title: "Agent"}
		doc.AddSection("", output.Fact{Label: "State", Value: "running but not responding", Status: output.StatusBad})
		return a.render(doc)
	}
	defer c.Close()

	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to get agent health: %w", err)
	}

	doc := &output.Document{Title: "Agent", Payload: health}
	doc.AddSection("",
		output.Fact{Label: "State", Value: health.Status, Status: output.StatusGood},
		output.Fact{Label: "PID", Value: fmt.Sprintf("%d", health.PID)},
		output.Fact{Label: "Uptime", Value: health.Uptime},
		output.Fact{Label: "Samples held", Value: fmt.Sprintf("%d", health.Samples)},
		output.Fact{Label: "Subscribers", Value: fmt.Sprintf("%d", health.Subscribers)},
	)
	return a.render(doc)
}

func (a *App) runAgentInstall(cmd *cobra.Command, _ []string) error {
	binary, err := a.resolveAgentBinary()
	if err != nil {
		return err
	}

	svc := agent.NewService()
	if err := svc.Install(cmd.Context(), binary); err != nil {
		return fmt.Errorf("failed to install agent service: %w", err)
	}

	plist, err := svc.PlistPath()
	if err == nil {
		a.printInfo("Installed launchd agent: %s", plist)
	} else {
		a.printInfo("Installed launchd agent")
	}
	a.printInfo("maccleanerd now starts at login.")
	return nil
}

func (a *App) runAgentUninstall(cmd *cobra.Command, _ []string) error {
	if err := agent.NewService().Uninstall(cmd.Context()); err != nil {
		if errors.Is(err, agent.ErrServiceNotInstalled) {
			a.printInfo("Agent service is not installed")
			return nil
		}
		return fmt.Errorf("failed to uninstall agent service: %w", err)
	}
	a.printInfo("Removed launchd agent")
	return nil
}

// resolveAgentBinary finds the maccleanerd binary for service install:
// the configured path, then a sibling of this executable, then the Go
// binary directories, then PATH.
func (a *App) resolveAgentBinary() (string, error) {
	if configured := a.agentPaths().Binary; configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured agent binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "maccleanerd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	if path, err := exec.LookPath("maccleanerd"); err == nil {
		return path, nil
	}

	return "", errors.New("maccleanerd not found; build it and put it next to maccleaner or on PATH")
}
