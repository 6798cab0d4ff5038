package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cache"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/filter"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/sizer"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/tree"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newAnalyzeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Find what is eating disk space",
		Long: `Analyze walks a directory tree and reports the files at or above the
size threshold, filtered and sorted to taste. Scans feed a size cache
so repeat runs over an unchanged tree answer instantly.

Examples:
  maccleaner analyze                          # Scan the configured default path
  maccleaner analyze ~/Downloads              # Scan a specific directory
  maccleaner analyze --min-size 500MB -n 20   # Top 20 files over 500MB
  maccleaner analyze --type video --sort age  # Oldest videos first
  maccleaner analyze ~/Library --tree         # Where the space sits`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runAnalyze,
	}

	flags := cmd.Flags()
	flags.String("min-size", "", "minimum file size to report (e.g. 100MB, 1.5G)")
	flags.StringSlice("exclude", nil, "glob patterns to skip (repeatable)")
	flags.String("type", "", "comma-separated type groups (video, audio, image, archive, installer, document, code, log)")
	flags.String("ext", "", "comma-separated extensions (e.g. .dmg,.zip)")
	flags.String("include", "", "comma-separated globs; only matching paths are reported")
	flags.String("older-than", "", "only files last modified before this age (e.g. 90d, 6m, 1y)")
	flags.String("newer-than", "", "only files last modified within this age")
	flags.Int("max-depth", 0, "only files at most this many levels below the root (0 for all)")
	flags.String("sort", "size", "sort field: size, age, path or name")
	flags.Bool("reverse", false, "reverse the sort order")
	flags.IntP("limit", "n", 50, "maximum files to report (0 for all)")
	flags.Bool("tree", false, "render the results as a directory tree")
	flags.Int("tree-depth", 0, "limit the tree rendering depth (0 for all)")
	flags.Bool("no-cache", false, "bypass the size cache and walk fresh")

	_ = a.v.BindPFlag("analyze.min_size", flags.Lookup("min-size"))
	_ = a.v.BindPFlag("analyze.exclude", flags.Lookup("exclude"))
	_ = a.v.BindPFlag("type", flags.Lookup("type"))
	_ = a.v.BindPFlag("ext", flags.Lookup("ext"))
	_ = a.v.BindPFlag("include", flags.Lookup("include"))
	_ = a.v.BindPFlag("older_than", flags.Lookup("older-than"))
	_ = a.v.BindPFlag("newer_than", flags.Lookup("newer-than"))
	_ = a.v.BindPFlag("max_depth", flags.Lookup("max-depth"))
	_ = a.v.BindPFlag("sort", flags.Lookup("sort"))
	_ = a.v.BindPFlag("reverse", flags.Lookup("reverse"))
	_ = a.v.BindPFlag("limit", flags.Lookup("limit"))

	return cmd
}

func (a *App) runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := a.resolveAnalyzeRoot(args)
	if err != nil {
		return err
	}

	f, err := buildFilter(a.v)
	if err != nil {
		return fmt.Errorf("failed to build filter: %w", err)
	}

	minSize, err := types.ParseSize(a.v.GetString("analyze.min_size"))
	if err != nil {
		return fmt.Errorf("invalid min-size %q: %w", a.v.GetString("analyze.min_size"), err)
	}

	var c *cache.Cache
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		c, err = cache.Open(sizeCachePath())
		if err != nil {
			a.printVerbose("size cache unavailable: %v", err)
			c = nil
		} else {
			defer c.Close()
		}
	}

	opts := sizer.Options{
		Root:        root,
		MinSize:     minSize,
		Exclude:     a.v.GetStringSlice("analyze.exclude"),
		DirWorkers:  a.cfg.Sizer.DirWorkers,
		FileWorkers: a.cfg.Sizer.FileWorkers,
		Cache:       c,
	}

	progress := !a.quiet() && isatty.IsTerminal(os.Stderr.Fd())
	if progress {
		opts.OnProgress = func(p types.ScanProgress) {
			fmt.Fprintf(os.Stderr, "\r\033[KScanning: %d dirs, %d files, %s", p.DirsScanned, p.FilesScanned, types.FormatSize(p.BytesScanned))
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	interrupted := false
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping scan...")
			interrupted = true
			cancel()
		case <-ctx.Done():
		}
	}()

	a.printVerbose("analyzing %s for files >= %s", root, types.FormatSize(minSize))

	s, err := sizer.New(opts)
	if err != nil {
		return err
	}

	res, err := s.Scan(ctx)
	if progress {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			a.printInfo("Scan cancelled")
			return nil
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	filtered := f.Apply(filter.FromScanAll(res.Files, root))

	if asTree, _ := cmd.Flags().GetBool("tree"); asTree {
		depth, _ := cmd.Flags().GetInt("tree-depth")
		node := tree.Build(root, filterToScan(filtered))
		return tree.Render(os.Stdout, node, depth)
	}

	return a.render(analyzeDocument(root, res, filtered, interrupted))
}

// resolveAnalyzeRoot picks the scan root: the positional argument, then
// the configured default path. The result must be an existing
// directory.
func (a *App) resolveAnalyzeRoot(args []string) (string, error) {
	path := "."
	switch {
	case len(args) > 0:
		path = args[0]
	case a.cfg != nil && a.cfg.Analyze.Path != "":
		path = a.cfg.Analyze.Path
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", expanded, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", abs)
	}
	return abs, nil
}

// sizeCachePath is where the persistent size cache lives.
func sizeCachePath() string {
	return filepath.Join(config.CacheDir(), "sizecache")
}

// filterToScan converts filtered entries back to scan entries for the
// tree builder.
func filterToScan(files []filter.FileInfo) []types.FileInfo {
	out := make([]types.FileInfo, len(files))
	for i, f := range files {
		out[i] = types.FileInfo{
			Path:    f.Path,
			Size:    f.Size,
			ModTime: f.ModTime,
			Mode:    f.Mode,
			Owner:   f.Owner,
		}
	}
	return out
}

func analyzeDocument(root string, res *types.ScanResult, files []filter.FileInfo, interrupted bool) *output.Document {
	doc := &output.Document{
		Title: "Disk Analysis",
		Files: make([]output.FileRow, len(files)),
	}
	for i, f := range files {
		doc.Files[i] = output.FileRow{Path: f.Path, Size: f.Size, ModTime: f.ModTime}
	}

	var shown int64
	for _, f := range files {
		shown += f.Size
	}

	facts := []output.Fact{
		{Label: "Root", Value: root},
		{Label: "Scanned", Value: fmt.Sprintf("%d files in %d directories", res.FilesScanned, res.DirsScanned)},
		{Label: "Total scanned", Value: types.FormatSize(res.TotalSize)},
		{Label: "Matched", Value: fmt.Sprintf("%d files, %s", len(files), types.FormatSize(shown))},
		{Label: "Elapsed", Value: res.Elapsed.Round(10 * time.Millisecond).String()},
	}
	if res.CacheHits > 0 || res.CacheMisses > 0 {
		facts = append(facts, output.Fact{
			Label: "Cache",
			Value: fmt.Sprintf("%d hits, %d misses", res.CacheHits, res.CacheMisses),
		})
	}
	doc.AddSection("Scan", facts...)

	for _, e := range res.Errors {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s: %s", e.Path, e.Error))
	}
	if interrupted {
		doc.Warnings = append(doc.Warnings, "scan interrupted, results are partial")
	}

	return doc
}
