package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privacy"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newPrivacyCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "privacy",
		Short: "Clear privacy-sensitive traces",
		Long: `Privacy clears traces the system accumulates about what you open and
download: the Recent Items lists, the quarantine event log of every
download, and the DNS caches.

Pick scopes with the flags, or clear everything with --all.

Examples:
  maccleaner privacy --recent            # Clear Recent Items lists
  maccleaner privacy --quarantine --dns  # Download log and DNS caches
  maccleaner privacy --all --dry-run     # Preview everything`,
		RunE: a.runPrivacy,
	}

	cmd.Flags().Bool("recent", false, "clear the Recent Items lists")
	cmd.Flags().Bool("quarantine", false, "clear the quarantine event log")
	cmd.Flags().Bool("dns", false, "flush the DNS caches")
	cmd.Flags().Bool("all", false, "clear every scope")
	cmd.Flags().BoolP("dry-run", "d", false, "report what would be cleared without clearing")

	return cmd
}

func (a *App) runPrivacy(cmd *cobra.Command, _ []string) error {
	scopes, err := privacyScopes(cmd)
	if err != nil {
		return err
	}

	man, err := a.manifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	var opts privacy.Options
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	s, err := privacy.New(a.exec, man, opts)
	if err != nil {
		return err
	}

	rep, err := s.Run(cmd.Context(), scopes)
	if err != nil {
		return err
	}
	return a.render(privacyDocument(rep))
}

// privacyScopes maps the scope flags to scrub scopes. At least one
// scope (or --all) must be selected.
func privacyScopes(cmd *cobra.Command) ([]privacy.Scope, error) {
	if all, _ := cmd.Flags().GetBool("all"); all {
		return privacy.AllScopes(), nil
	}

	var scopes []privacy.Scope
	if v, _ := cmd.Flags().GetBool("recent"); v {
		scopes = append(scopes, privacy.ScopeRecent)
	}
	if v, _ := cmd.Flags().GetBool("quarantine"); v {
		scopes = append(scopes, privacy.ScopeQuarantine)
	}
	if v, _ := cmd.Flags().GetBool("dns"); v {
		scopes = append(scopes, privacy.ScopeDNS)
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("no scopes selected; pass --recent, --quarantine, --dns or --all")
	}
	return scopes, nil
}

func privacyDocument(r *privacy.Report) *output.Document {
	dryRun := r.Mode == manifest.ModeDryRun

	title := "Privacy Scrub"
	if dryRun {
		title = "Privacy Scrub (dry run)"
	}
	doc := &output.Document{Title: title, Payload: r, Warnings: r.Errors}

	verb := "Cleared"
	if dryRun {
		verb = "Would clear"
	}

	var facts []output.Fact
	for _, scope := range r.Scopes {
		switch scope {
		case privacy.ScopeRecent:
			var size int64
			for _, f := range r.RecentFiles {
				size += f.Size
			}
			facts = append(facts, output.Fact{
				Label:  "Recent Items",
				Value:  fmt.Sprintf("%s %d lists (%s)", verb, len(r.RecentFiles), types.FormatSize(size)),
				Status: output.StatusGood,
			})
		case privacy.ScopeQuarantine:
			facts = append(facts, output.Fact{
				Label:  "Quarantine log",
				Value:  fmt.Sprintf("%s %d download events", verb, r.QuarantineEvents),
				Status: output.StatusGood,
			})
		case privacy.ScopeDNS:
			value := "flushed"
			status := output.StatusGood
			switch {
			case dryRun:
				value = "would flush"
				status = output.StatusNone
			case !r.DNSFlushed:
				value = "flush failed"
				status = output.StatusBad
			}
			facts = append(facts, output.Fact{Label: "DNS caches", Value: value, Status: status})
		}
	}
	doc.AddSection(scopeLine(r.Scopes), facts...)

	if r.ManifestID != "" {
		doc.AddSection("", output.Fact{Label: "History entry", Value: r.ManifestID})
	}
	return doc
}

func scopeLine(scopes []privacy.Scope) string {
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = string(s)
	}
	return "Scopes: " + strings.Join(names, ", ")
}
