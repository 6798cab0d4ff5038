package main

import (
	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/cmd/maccleaner/tui"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/process"
)

func newDashboardCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Live terminal dashboard",
		Long: `Open a full-screen dashboard with live memory, CPU, disk and
battery telemetry, a process list for picking stop candidates, and the
client's own log stream.

Readings stream from the background agent when it is running; otherwise
the dashboard probes the system directly on each refresh. Purges started
from the dashboard run the same privileged flow as 'maccleaner purge'.`,
		Args: cobra.NoArgs,
		RunE: a.runDashboard,
	}
}

func (a *App) runDashboard(_ *cobra.Command, _ []string) error {
	// Best effort: a missing agent just means probe-only telemetry.
	if err := a.maybeStartAgent(); err != nil {
		a.printVerbose("agent autostart: %v", err)
	}

	socket := a.agentPaths().Socket
	if socket == "" {
		socket = config.DefaultSocketPath()
	}

	return tui.Run(tui.Options{
		RefreshInterval: a.cfg.RefreshInterval,
		SettleDelay:     a.cfg.SettleDelay,
		StopGrace:       a.cfg.StopGrace,
		Socket:          socket,
		NoAgent:         a.v.GetBool("no_agent"),
		Version:         version,
		Reader:          a.reader,
		Exec:            a.exec,
		Directory:       process.NewDirectory(),
	})
}
