package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/startup"
)

func newStartupCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "startup",
		Short: "Manage launchd startup items",
		Long: `Startup lists the launchd jobs that run at login and toggles user
launch agents on and off. Launch daemons are shown for visibility but
cannot be toggled.

Examples:
  maccleaner startup                      # List startup items
  maccleaner startup disable com.foo.bar  # Stop an agent from launching
  maccleaner startup enable com.foo.bar`,
		RunE: a.runStartupList,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List startup items",
			RunE:  a.runStartupList,
		},
		&cobra.Command{
			Use:   "enable <label>",
			Short: "Load an agent so it runs at login",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runStartupEnable,
		},
		&cobra.Command{
			Use:   "disable <label>",
			Short: "Unload an agent so it no longer runs at login",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runStartupDisable,
		},
	)

	return cmd
}

func (a *App) runStartupList(cmd *cobra.Command, _ []string) error {
	items, err := startup.NewManager().List(cmd.Context())
	if err != nil {
		return err
	}
	return a.render(startupDocument(items))
}

func (a *App) runStartupEnable(cmd *cobra.Command, args []string) error {
	if err := startup.NewManager().Enable(cmd.Context(), args[0]); err != nil {
		return err
	}
	a.printInfo("Enabled %s", args[0])
	return nil
}

func (a *App) runStartupDisable(cmd *cobra.Command, args []string) error {
	if err := startup.NewManager().Disable(cmd.Context(), args[0]); err != nil {
		return err
	}
	a.printInfo("Disabled %s", args[0])
	return nil
}

func startupDocument(items []startup.Item) *output.Document {
	doc := &output.Document{Title: "Startup Items", Payload: items}

	sections := []struct {
		title string
		scope startup.Scope
	}{
		{"User agents", startup.ScopeUserAgent},
		{"Global agents", startup.ScopeGlobalAgent},
		{"Daemons (read-only)", startup.ScopeDaemon},
	}

	for _, sec := range sections {
		var facts []output.Fact
		for _, item := range items {
			if item.Scope != sec.scope {
				continue
			}
			facts = append(facts, output.Fact{
				Label:  item.Label,
				Value:  startupState(item),
				Status: startupStatus(item),
			})
		}
		if len(facts) > 0 {
			doc.AddSection(sec.title, facts...)
		}
	}
	return doc
}

func startupState(item startup.Item) string {
	switch {
	case item.PID > 0:
		return fmt.Sprintf("running (pid %d)", item.PID)
	case item.Loaded:
		return "loaded"
	default:
		return "disabled"
	}
}

func startupStatus(item startup.Item) output.Status {
	if item.PID > 0 {
		return output.StatusGood
	}
	if !item.Loaded {
		return output.StatusWarn
	}
	return output.StatusNone
}
