// Package process enumerates running processes and delivers guarded
// termination signals. Listing goes through ps so the fields match
// what the user sees in Activity Monitor; candidates for termination
// pass an ordered set of admission guards before any signal is sent.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

const listTimeout = 10 * time.Second

// ErrNotFound indicates a PID that does not resolve to a running
// process.
var ErrNotFound = errors.New("process not found")

// Runner executes an external command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Directory resolves and signals running processes.
type Directory interface {
	// List returns all running processes, largest resident size first.
	List(ctx context.Context) ([]types.ProcessInfo, error)

	// Lookup resolves a single PID. Returns ErrNotFound when no such
	// process is running.
	Lookup(ctx context.Context, pid int) (types.ProcessInfo, error)

	// Terminate sends SIGTERM. Delivery is best-effort; the caller
	// does not learn whether the process exited.
	Terminate(pid int) error
}

// PSDirectory is the production Directory, backed by ps and kill.
type PSDirectory struct {
	run Runner
	log *logging.Logger
}

var _ Directory = (*PSDirectory)(nil)

// NewDirectory returns a Directory backed by real process listing.
func NewDirectory() *PSDirectory {
	return NewDirectoryWithRunner(execRunner{})
}

// NewDirectoryWithRunner returns a Directory using the given Runner
// for the ps invocation. Tests substitute fixture output.
func NewDirectoryWithRunner(run Runner) *PSDirectory {
	return &PSDirectory{
		run: run,
		log: logging.Get("process"),
	}
}

// List returns all running processes, largest resident size first.
func (d *PSDirectory) List(ctx context.Context) ([]types.ProcessInfo, error) {
	cctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	out, err := d.run.Output(cctx, "ps", "-Axco", "pid=,uid=,rss=,pcpu=,user=,comm=")
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	procs := ParsePS(out)
	sort.Slice(procs, func(i, j int) bool {
		return procs[i].ResidentBytes > procs[j].ResidentBytes
	})
	return procs, nil
}

// Lookup resolves a single PID via the process listing.
func (d *PSDirectory) Lookup(ctx context.Context, pid int) (types.ProcessInfo, error) {
	procs, err := d.List(ctx)
	if err != nil {
		return types.ProcessInfo{}, err
	}

	for _, p := range procs {
		if p.PID == pid {
			return p, nil
		}
	}
	return types.ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
}

// Terminate sends SIGTERM to pid.
func (d *PSDirectory) Terminate(pid int) error {
	d.log.Debug("sending SIGTERM", "pid", pid)
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}

// Alive reports whether pid is currently running. EPERM means the
// process exists but belongs to another user, so it counts as alive.
func Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ParsePS converts `ps -Axco pid=,uid=,rss=,pcpu=,user=,comm=` output
// into process records. rss is reported in KiB; the command name is
// everything after the fifth column since it may contain spaces.
// Malformed lines are skipped.
func ParsePS(out []byte) []types.ProcessInfo {
	var procs []types.ProcessInfo

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		uid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		rssKiB, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		pcpu, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}

		procs = append(procs, types.ProcessInfo{
			PID:           pid,
			Owner:         uid,
			User:          fields[4],
			Name:          strings.Join(fields[5:], " "),
			ResidentBytes: rssKiB * 1024,
			CPUPercent:    pcpu,
		})
	}

	return procs
}
