package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cleaner"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/sizer"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newCleanCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [target|category]...",
		Short: "Remove cache and junk files",
		Long: `Clean known cache and junk locations: user caches and logs, the
Trash, browser caches, developer leftovers and more.

Targets are selected by ID or by category. Removed files go to the
Trash by default so a mistake is recoverable; --no-trash deletes
permanently. Targets marked admin use elevated removal and may prompt.

Examples:
  maccleaner clean --list           # See what can be cleaned
  maccleaner clean user-caches      # One target
  maccleaner clean developer        # Whole category
  maccleaner clean --all --dry-run  # Preview everything`,
		RunE: a.runClean,
	}

	cmd.Flags().Bool("all", false, "clean every target")
	cmd.Flags().Bool("list", false, "list available targets and exit")
	cmd.Flags().BoolP("dry-run", "d", false, "report what would be removed without removing")
	cmd.Flags().Bool("no-trash", false, "delete permanently instead of moving to the Trash")

	return cmd
}

func (a *App) runClean(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		return a.render(targetListDocument())
	}

	all, _ := cmd.Flags().GetBool("all")
	targets, err := selectTargets(args, all)
	if err != nil {
		return err
	}

	opts := cleaner.DefaultOptions()
	opts.Trash = a.cfg.Clean.Trash
	opts.DryRun = a.cfg.Clean.DryRun
	if noTrash, _ := cmd.Flags().GetBool("no-trash"); noTrash {
		opts.Trash = false
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		opts.DryRun = true
	}

	man, err := a.manifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	quick := sizer.NewQuickSizer(a.cfg.Sizer.FileWorkers)
	cl := cleaner.New(quick, a.exec, man, opts)

	if opts.DryRun {
		a.printVerbose("dry run: scanning %d targets", len(targets))
	} else {
		a.printVerbose("cleaning %d targets", len(targets))
	}

	result, err := cl.Clean(cmd.Context(), targets)
	if err != nil {
		return err
	}

	return a.render(cleanDocument(result))
}

// selectTargets resolves the positional arguments against target IDs
// first, categories second.
func selectTargets(args []string, all bool) ([]cleaner.Target, error) {
	if all {
		return cleaner.Targets(), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no targets selected; pass target IDs, a category, or --all (see clean --list)")
	}

	var targets []cleaner.Target
	seen := make(map[string]bool)
	for _, arg := range args {
		if t, ok := cleaner.TargetByID(arg); ok {
			if !seen[t.ID] {
				targets = append(targets, t)
				seen[t.ID] = true
			}
			continue
		}
		byCat := cleaner.TargetsByCategory(arg)
		if len(byCat) == 0 {
			return nil, fmt.Errorf("unknown target or category %q: categories are %s", arg, strings.Join(cleaner.Categories(), ", "))
		}
		for _, t := range byCat {
			if !seen[t.ID] {
				targets = append(targets, t)
				seen[t.ID] = true
			}
		}
	}
	return targets, nil
}

func targetListDocument() *output.Document {
	doc := &output.Document{
		Title:   "Clean Targets",
		Payload: cleaner.Targets(),
	}

	for _, cat := range cleaner.Categories() {
		targets := cleaner.TargetsByCategory(cat)
		facts := make([]output.Fact, 0, len(targets))
		for _, t := range targets {
			value := t.Description
			var marks []string
			if t.RequiresAdmin {
				marks = append(marks, "admin")
			}
			if t.Permanent {
				marks = append(marks, "permanent")
			}
			if len(marks) > 0 {
				value += " [" + strings.Join(marks, ", ") + "]"
			}
			facts = append(facts, output.Fact{
				Label:  t.ID,
				Value:  value,
				Status: riskStatus(t.Risk),
			})
		}
		doc.AddSection(cat, facts...)
	}

	return doc
}

func riskStatus(r cleaner.RiskLevel) output.Status {
	switch r {
	case cleaner.RiskHigh:
		return output.StatusBad
	case cleaner.RiskMedium:
		return output.StatusWarn
	default:
		return output.StatusNone
	}
}

func cleanDocument(r *cleaner.Result) *output.Document {
	dryRun := r.Mode == manifest.ModeDryRun

	title := "Clean"
	if dryRun {
		title = "Clean (dry run)"
	}

	doc := &output.Document{
		Title:    title,
		Payload:  r,
		Warnings: r.Errors,
	}

	var facts []output.Fact
	for _, rep := range r.Reports {
		if rep.TotalSize == 0 && len(rep.Items) == 0 {
			continue
		}
		facts = append(facts, output.Fact{
			Label: rep.Target.Name,
			Value: fmt.Sprintf("%s in %d items", types.FormatSize(rep.TotalSize), len(rep.Items)),
		})
	}
	if len(facts) > 0 {
		doc.AddSection("Targets", facts...)
	}

	verb := "Freed"
	if dryRun {
		verb = "Would free"
	}
	summary := []output.Fact{
		{Label: verb, Value: types.FormatSize(r.Freed), Status: output.StatusGood},
		{Label: "Files removed", Value: fmt.Sprintf("%d", len(r.Removed))},
	}
	if r.ManifestID != "" {
		summary = append(summary, output.Fact{Label: "History entry", Value: r.ManifestID})
	}
	doc.AddSection("Summary", summary...)

	return doc
}
