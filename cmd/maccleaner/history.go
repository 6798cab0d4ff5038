package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// manifest returns the operation journal, or nil when history is
// disabled in config. Callers treat a nil manifest as no journaling.
func (a *App) manifest() (*manifest.Manifest, error) {
	if a.cfg != nil && !a.cfg.History.Enabled {
		return nil, nil
	}

	dir := ""
	if a.cfg != nil {
		dir = a.cfg.History.Path
	}
	if dir == "" {
		dir = config.HistoryDir()
	}
	return manifest.New(dir)
}

func newHistoryCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past clean, uninstall and privacy runs",
		Long: `History shows the journal of maintenance runs: what was removed, when
and how. Dry runs are journaled too, marked as such.

Examples:
  maccleaner history                      # Recent runs
  maccleaner history show clean-1a2b3c4d  # Every file one run removed
  maccleaner history clean                # Prune old entries`,
		RunE: a.runHistoryList,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE:  a.runHistoryList,
	}
	listCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)")

	cmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one run in full",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runHistoryShow,
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Prune entries older than the retention window",
			RunE:  a.runHistoryClean,
		},
	)

	return cmd
}

func (a *App) runHistoryList(cmd *cobra.Command, _ []string) error {
	m, err := a.historyManifest()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := m.List(limit)
	if err != nil {
		return err
	}
	return a.render(historyDocument(entries))
}

func (a *App) runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := a.historyManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return err
	}
	return a.render(entryDocument(entry))
}

func (a *App) runHistoryClean(_ *cobra.Command, _ []string) error {
	m, err := a.historyManifest()
	if err != nil {
		return err
	}

	days := config.DefaultRetentionDays
	if a.cfg != nil && a.cfg.History.RetentionDays > 0 {
		days = a.cfg.History.RetentionDays
	}
	if err := m.Cleanup(days); err != nil {
		return err
	}
	a.printInfo("Pruned history entries older than %d days", days)
	return nil
}

// historyManifest is manifest for the history subcommands, where a
// disabled journal is an error rather than a silent nil.
func (a *App) historyManifest() (*manifest.Manifest, error) {
	m, err := a.manifest()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("history is disabled; set history.enabled in the config file")
	}
	return m, nil
}

func historyDocument(entries []manifest.Entry) *output.Document {
	doc := &output.Document{Title: "History", Payload: entries}

	if len(entries) == 0 {
		doc.AddSection("", output.Fact{Label: "History", Value: "no recorded runs"})
		return doc
	}

	facts := make([]output.Fact, 0, len(entries))
	for _, e := range entries {
		facts = append(facts, output.Fact{
			Label: e.ID,
			Value: fmt.Sprintf("%s %s: %d files, %s (%s)",
				e.Operation,
				truncateString(strings.Join(e.Targets, ", "), 32),
				e.Summary.TotalFiles,
				types.FormatSize(e.Summary.TotalBytes),
				humanize.Time(e.Timestamp)),
		})
	}
	doc.AddSection(fmt.Sprintf("%d runs", len(entries)), facts...)
	return doc
}

func entryDocument(e *manifest.Entry) *output.Document {
	doc := &output.Document{
		Title:    fmt.Sprintf("History: %s", e.ID),
		Payload:  e,
		Warnings: e.Errors,
	}

	doc.AddSection("Run",
		output.Fact{Label: "Operation", Value: string(e.Operation)},
		output.Fact{Label: "Targets", Value: strings.Join(e.Targets, ", ")},
		output.Fact{Label: "Mode", Value: string(e.Mode)},
		output.Fact{Label: "When", Value: fmt.Sprintf("%s (%s)", e.Timestamp.Local().Format("2006-01-02 15:04:05"), humanize.Time(e.Timestamp))},
	)
	doc.AddSection("Summary",
		output.Fact{Label: "Files", Value: fmt.Sprintf("%d", e.Summary.TotalFiles)},
		output.Fact{Label: "Size", Value: types.FormatSize(e.Summary.TotalBytes)},
	)

	doc.Files = make([]output.FileRow, len(e.Files))
	for i, f := range e.Files {
		doc.Files[i] = output.FileRow{Path: f.Path, Size: f.Size, ModTime: f.ModTime}
	}
	return doc
}

// truncateString shortens s to max runes, ellipsis included.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
