// Package privileged executes commands that require administrator
// rights. It offers three invocation modes: non-interactive sudo
// against cached credentials, sudo with an askpass helper that prompts
// through a masked system dialog, and the native administrator dialog
// via osascript. Callers bound every invocation with a context
// deadline; an expired deadline surfaces as ErrOperationTimedOut.
package privileged

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// ErrOperationTimedOut indicates a privileged command hit its deadline
// and was killed.
var ErrOperationTimedOut = errors.New("operation timed out")

// Executor runs commands that need administrator rights.
type Executor interface {
	// NonInteractive runs `sudo -n <args>`. It fails instead of
	// prompting when no credential is cached.
	NonInteractive(ctx context.Context, args ...string) error

	// Interactive runs `sudo -A <args>` with a temporary askpass
	// helper, collecting the password through a masked system dialog.
	// The helper is removed before returning.
	Interactive(ctx context.Context, args ...string) error

	// NativeDialog runs command through the system administrator
	// dialog. The command is embedded in an AppleScript literal;
	// callers must pass a fixed string, never user input.
	NativeDialog(ctx context.Context, command string) error
}

// SudoExecutor is the production Executor.
type SudoExecutor struct {
	log *logging.Logger
}

var _ Executor = (*SudoExecutor)(nil)

// NewExecutor returns an Executor backed by sudo and osascript.
func NewExecutor() *SudoExecutor {
	return &SudoExecutor{log: logging.Get("privileged")}
}

// NonInteractive runs `sudo -n <args>`.
func (e *SudoExecutor) NonInteractive(ctx context.Context, args ...string) error {
	e.log.Debug("non-interactive sudo", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "sudo", append([]string{"-n"}, args...)...)
	return runCollectingStderr(ctx, cmd)
}

// Interactive runs `sudo -A <args>` with the askpass helper wired in
// through SUDO_ASKPASS.
func (e *SudoExecutor) Interactive(ctx context.Context, args ...string) error {
	helper, cleanup, err := writeAskpassHelper()
	if err != nil {
		return fmt.Errorf("create askpass helper: %w", err)
	}
	defer cleanup()

	e.log.Debug("interactive sudo", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "sudo", append([]string{"-A"}, args...)...)
	cmd.Env = append(os.Environ(), "SUDO_ASKPASS="+helper)
	return runCollectingStderr(ctx, cmd)
}

// NativeDialog runs command through the system administrator dialog.
func (e *SudoExecutor) NativeDialog(ctx context.Context, command string) error {
	e.log.Debug("native authorization dialog", "command", command)
	cmd := exec.CommandContext(ctx, "osascript", "-e", dialogScript(command))
	return runCollectingStderr(ctx, cmd)
}

// dialogScript wraps a shell command in the AppleScript that triggers
// the administrator password dialog.
func dialogScript(command string) string {
	return fmt.Sprintf("do shell script %q with administrator privileges", command)
}

// runCollectingStderr runs cmd and folds its stderr into the returned
// error. A context deadline hit maps to ErrOperationTimedOut.
func runCollectingStderr(ctx context.Context, cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	return classifyRunError(ctx, err, stderr.String(), strings.Join(cmd.Args, " "))
}

// classifyRunError turns a command failure into an error carrying the
// command line and stderr text, mapping deadline hits to
// ErrOperationTimedOut.
func classifyRunError(ctx context.Context, err error, stderr, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrOperationTimedOut)
	}

	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s: %w: %s", op, err, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
