package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/sizer"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/uninstall"
)

func newUninstallCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <app>",
		Short: "Remove an application and its leftovers",
		Long: `Uninstall moves an application bundle to the Trash together with the
support files, caches, preferences and saved state it left around the
Library. The app is matched by name, exact first, then by prefix.

Apple's own applications are refused.

Examples:
  maccleaner uninstall --list            # Installed applications
  maccleaner uninstall "Old App"         # Remove app and leftovers
  maccleaner uninstall OldApp --dry-run  # Preview the removal
  maccleaner uninstall OldApp --keep-prefs`,
		RunE: a.runUninstall,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "show what would be removed without removing")
	cmd.Flags().Bool("keep-prefs", false, "leave preference files in place")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().Bool("list", false, "list installed applications and exit")

	return cmd
}

func (a *App) runUninstall(cmd *cobra.Command, args []string) error {
	man, err := a.manifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	var opts uninstall.Options
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.KeepPrefs, _ = cmd.Flags().GetBool("keep-prefs")

	quick := sizer.NewQuickSizer(a.cfg.Sizer.FileWorkers)
	u := uninstall.New(quick, man, opts)

	if list, _ := cmd.Flags().GetBool("list"); list {
		apps, err := u.List(cmd.Context())
		if err != nil {
			return err
		}
		return a.render(appListDocument(apps))
	}

	if len(args) == 0 {
		return errors.New("pass the application to remove, or --list to see what is installed")
	}
	query := strings.Join(args, " ")

	app, err := u.Resolve(cmd.Context(), query)
	if err != nil {
		return err
	}

	plan, err := u.Plan(cmd.Context(), app)
	if err != nil {
		return err
	}

	if err := a.render(planDocument(plan, opts.DryRun)); err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes && !opts.DryRun {
		ok, err := confirm(fmt.Sprintf("Move %q and %d leftover paths to the Trash?", plan.App.Name, len(plan.Residues)))
		if err != nil {
			return err
		}
		if !ok {
			a.printInfo("Nothing removed.")
			return nil
		}
	}

	res, err := u.Uninstall(cmd.Context(), plan)
	if err != nil {
		return err
	}
	if opts.DryRun {
		return nil
	}
	return a.render(uninstallDocument(res))
}

// confirm asks a yes/no question on the terminal. Only an explicit
// "y" or "yes" answers yes.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func appListDocument(apps []uninstall.App) *output.Document {
	doc := &output.Document{Title: "Installed Applications", Payload: apps}

	facts := make([]output.Fact, 0, len(apps))
	for _, app := range apps {
		facts = append(facts, output.Fact{Label: app.Name, Value: app.Path})
	}
	doc.AddSection(fmt.Sprintf("%d applications", len(apps)), facts...)
	return doc
}

func planDocument(p *uninstall.Plan, dryRun bool) *output.Document {
	title := "Uninstall Plan"
	if dryRun {
		title = "Uninstall Plan (dry run)"
	}
	doc := &output.Document{Title: title, Payload: p}

	appFacts := []output.Fact{
		{Label: "Bundle", Value: fmt.Sprintf("%s (%s)", p.App.Path, types.FormatSize(p.App.Size))},
	}
	if p.App.BundleID != "" {
		appFacts = append(appFacts, output.Fact{Label: "Identifier", Value: p.App.BundleID})
	}
	doc.AddSection(p.App.Name, appFacts...)

	if len(p.Residues) > 0 {
		facts := make([]output.Fact, 0, len(p.Residues))
		for _, r := range p.Residues {
			facts = append(facts, output.Fact{
				Label: r.Kind,
				Value: fmt.Sprintf("%s (%s)", r.Path, types.FormatSize(r.Size)),
			})
		}
		doc.AddSection("Leftovers", facts...)
	}

	doc.AddSection("", output.Fact{Label: "Total", Value: types.FormatSize(p.TotalSize)})
	return doc
}

func uninstallDocument(r *uninstall.Result) *output.Document {
	doc := &output.Document{
		Title:    "Uninstall",
		Payload:  r,
		Warnings: r.Errors,
	}

	facts := []output.Fact{
		{Label: "Removed", Value: fmt.Sprintf("%d paths", len(r.Removed))},
		{Label: "Freed", Value: types.FormatSize(r.Freed), Status: output.StatusGood},
	}
	if r.Mode == manifest.ModeTrash {
		facts = append(facts, output.Fact{Label: "Recoverable", Value: "yes, items are in the Trash"})
	}
	if r.ManifestID != "" {
		facts = append(facts, output.Fact{Label: "History entry", Value: r.ManifestID})
	}
	doc.AddSection("Summary", facts...)
	return doc
}
