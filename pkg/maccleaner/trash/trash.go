// Package trash sends files to the platform trash, falling back to
// permanent deletion when no trash facility is reachable.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// commandTimeout bounds a single trash-tool invocation. Finder can stall
// for a long time on a slow network volume.
const commandTimeout = 30 * time.Second

// MoveToTrash sends path to the trash. On macOS the move goes through
// Finder so the file stays restorable; on Linux it tries the freedesktop
// trash tools. When no trash route works the path is removed permanently.
func MoveToTrash(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return trashDarwin(ctx, abs)
	case "linux":
		return trashLinux(ctx, abs)
	default:
		return Remove(abs)
	}
}

// trashDarwin asks Finder to delete the file, which lands it in the
// user's Trash. Finder is unreachable over SSH and in headless sessions,
// so a refused ask degrades to a permanent delete.
func trashDarwin(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	script := fmt.Sprintf("tell application %q to delete POSIX file %q", "Finder", path)
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		return Remove(path)
	}
	return nil
}

// trashLinux tries gio, then trash-put, then deletes permanently.
func trashLinux(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if gio, err := exec.LookPath("gio"); err == nil {
		if err := exec.CommandContext(ctx, gio, "trash", path).Run(); err == nil {
			return nil
		}
	}
	if tp, err := exec.LookPath("trash-put"); err == nil {
		if err := exec.CommandContext(ctx, tp, path).Run(); err == nil {
			return nil
		}
	}
	return Remove(path)
}

// Remove deletes path permanently, bypassing the trash.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	return nil
}
