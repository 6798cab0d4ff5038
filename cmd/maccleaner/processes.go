package main

import (
	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/process"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newProcessesCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "Show the processes using the most memory",
		Long: `Processes lists running processes ordered by resident memory, the
same view the dashboard's process tab gives, for scripts and quick
checks.`,
		RunE: a.runProcesses,
	}

	cmd.Flags().IntP("limit", "n", 15, "number of processes to show (0 for all)")

	return cmd
}

func (a *App) runProcesses(cmd *cobra.Command, _ []string) error {
	procs, err := process.NewDirectory().List(cmd.Context())
	if err != nil {
		return err
	}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}
	return a.render(processDocument(procs))
}

func processDocument(procs []types.ProcessInfo) *output.Document {
	doc := &output.Document{Title: "Top Processes", Payload: procs}

	doc.Processes = make([]output.ProcessRow, len(procs))
	for i, p := range procs {
		doc.Processes[i] = output.ProcessRow{
			PID:           p.PID,
			User:          p.User,
			Name:          p.Name,
			ResidentBytes: int64(p.ResidentBytes),
			CPUPercent:    p.CPUPercent,
		}
	}
	return doc
}
