package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/memory"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/process"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newPurgeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Free reclaimable memory",
		Long: `Run the privileged purge operation and report how much memory it
freed, both immediately and after the figures settle.

Authorization escalates through cached sudo credentials, a password
prompt, and the native administrator dialog. With --stop, the listed
processes are sent SIGTERM first; each candidate must belong to you
and pass the safety guards, or it is skipped.`,
		Args: cobra.NoArgs,
		RunE: a.runPurge,
	}

	cmd.Flags().String("stop", "", "comma-separated PIDs to stop before purging")
	cmd.Flags().Duration("settle", 0, "wait before the stabilized reading (default from config)")

	return cmd
}

func (a *App) runPurge(cmd *cobra.Command, _ []string) error {
	stopList, _ := cmd.Flags().GetString("stop")
	pids, err := parsePIDList(stopList)
	if err != nil {
		return err
	}

	opts := memory.Options{
		SettleDelay: a.cfg.SettleDelay,
		StopGrace:   a.cfg.StopGrace,
	}
	if settle, _ := cmd.Flags().GetDuration("settle"); settle > 0 {
		opts.SettleDelay = settle
	}

	runner := memory.NewRunner(a.reader, a.exec, process.NewDirectory(), opts)

	a.printInfo("Purging inactive memory (this may prompt for administrator rights)...")

	var report *types.CleanupReport
	if len(pids) > 0 {
		report, err = runner.RunWithStops(cmd.Context(), pids)
	} else {
		report, err = runner.Run(cmd.Context())
	}
	if err != nil {
		if errors.Is(err, memory.ErrAuthorizationFailed) && report != nil {
			a.printError("authorization failed: %s", report.Authorization.Error)
		}
		return err
	}

	return a.render(purgeDocument(report))
}

func purgeDocument(r *types.CleanupReport) *output.Document {
	doc := &output.Document{
		Title:   "Memory Purge",
		Payload: r,
	}

	doc.AddSection("Freed",
		output.Fact{Label: "Immediately", Value: types.FormatBytes(r.ImmediateFreeGain), Status: gainStatus(r.ImmediateFreeGain)},
		output.Fact{Label: "After settling", Value: types.FormatBytes(r.StabilizedFreeGain), Status: gainStatus(r.StabilizedFreeGain)},
		output.Fact{Label: "Used memory drop", Value: types.FormatBytes(r.StabilizedUsedDrop)},
	)

	doc.AddSection("Readings",
		output.Fact{Label: "Free before", Value: types.FormatBytes(r.Before.Snapshot.Free)},
		output.Fact{Label: "Free after", Value: types.FormatBytes(r.Stabilized.Snapshot.Free)},
		output.Fact{Label: "Pressure", Value: string(r.Stabilized.Pressure.Level), Status: pressureStatus(r.Stabilized.Pressure.Level)},
	)

	doc.AddSection("Run",
		output.Fact{Label: "Authorization", Value: r.Authorization.Method},
		output.Fact{Label: "Elapsed", Value: r.Elapsed.Round(10 * time.Millisecond).String()},
	)

	if len(r.Stops) > 0 {
		facts := make([]output.Fact, 0, len(r.Stops))
		for _, s := range r.Stops {
			label := fmt.Sprintf("PID %d", s.PID)
			if s.Name != "" {
				label = fmt.Sprintf("%s (%d)", s.Name, s.PID)
			}
			if s.Signaled {
				facts = append(facts, output.Fact{Label: label, Value: "stopped", Status: output.StatusGood})
			} else {
				facts = append(facts, output.Fact{Label: label, Value: "skipped: " + s.SkipReason, Status: output.StatusWarn})
			}
		}
		doc.AddSection("Stopped processes", facts...)
	}

	return doc
}

func gainStatus(n uint64) output.Status {
	if n == 0 {
		return output.StatusNone
	}
	return output.StatusGood
}
