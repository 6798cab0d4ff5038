package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cache"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newCacheCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analyze size cache",
		Long: `Commands for the size cache that speeds up repeat analyze runs.

The cache remembers directory metadata between scans so an unchanged
tree answers without a walk. It lives in the XDG cache directory
(typically ~/Library/Caches/maccleaner).`,
		RunE: a.runCacheStats,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache statistics",
			RunE:  a.runCacheStats,
		},
		&cobra.Command{
			Use:   "clear [root]",
			Short: "Drop cached data, for one scan root or everything",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runCacheClear,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache location",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Println(sizeCachePath())
			},
		},
	)

	return cmd
}

func (a *App) runCacheStats(_ *cobra.Command, _ []string) error {
	path := sizeCachePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		doc := &output.Document{Title: "Size Cache"}
		doc.AddSection("",
			output.Fact{Label: "State", Value: "empty"},
			output.Fact{Label: "Location", Value: path},
		)
		return a.render(doc)
	}

	c, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	doc := &output.Document{Title: "Size Cache", Payload: stats}
	doc.AddSection("",
		output.Fact{Label: "Location", Value: path},
		output.Fact{Label: "Entries", Value: fmt.Sprintf("%d across %d scan roots", stats.Entries, stats.Roots)},
		output.Fact{Label: "On disk", Value: types.FormatSize(stats.DiskBytes)},
	)
	return a.render(doc)
}

func (a *App) runCacheClear(_ *cobra.Command, args []string) error {
	path := sizeCachePath()

	if len(args) == 0 {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.printInfo("Cache is already empty.")
			return nil
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		a.printInfo("Cache cleared. The next analyze run walks fresh.")
		return nil
	}

	root, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}

	c, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	if err := c.Clear(root); err != nil {
		return fmt.Errorf("failed to clear %s: %w", root, err)
	}
	a.printInfo("Cleared cached data for %s", root)
	return nil
}
