// Package memory frees inactive memory through the privileged purge
// operation, escalating through three authorization tiers: cached sudo
// credentials, an askpass prompt, and the native administrator dialog.
// Every run measures memory before and after and reports the deltas.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privileged"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/process"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// ErrAuthorizationFailed indicates all three escalation tiers failed.
// It wraps the most specific tier error available.
var ErrAuthorizationFailed = errors.New("authorization failed")

// MaxStopCandidates caps the batch size of RunWithStops. Candidates
// beyond the cap are rejected before any guard runs.
const MaxStopCandidates = 5

// purgeCommand is the privileged operation. It is a fixed literal;
// nothing is ever interpolated into the escalation command lines.
const purgeCommand = "purge"

// Default operation bounds.
const (
	DefaultProbeTimeout       = 5 * time.Second
	DefaultInteractiveTimeout = 30 * time.Second
	DefaultPurgeTimeout       = 45 * time.Second
	DefaultSettleDelay        = 12 * time.Second
	DefaultStopGrace          = 1200 * time.Millisecond
)

// Reader captures paired memory snapshot and pressure observations.
type Reader interface {
	Reading(ctx context.Context) types.MemoryReading
}

// Options bound the runner's external invocations and waits. Zero
// fields take the package defaults.
type Options struct {
	// ProbeTimeout bounds the cached-credential probe.
	ProbeTimeout time.Duration

	// InteractiveTimeout bounds the askpass credential prompt.
	InteractiveTimeout time.Duration

	// PurgeTimeout bounds each privileged purge invocation.
	PurgeTimeout time.Duration

	// SettleDelay is the wait before the stabilized reading.
	SettleDelay time.Duration

	// StopGrace is the wait after signaling stop candidates.
	StopGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.InteractiveTimeout <= 0 {
		o.InteractiveTimeout = DefaultInteractiveTimeout
	}
	if o.PurgeTimeout <= 0 {
		o.PurgeTimeout = DefaultPurgeTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.StopGrace <= 0 {
		o.StopGrace = DefaultStopGrace
	}
	return o
}

// Runner performs the privileged purge with escalating authorization
// and before/after measurement.
type Runner struct {
	reader Reader
	exec   privileged.Executor
	dir    process.Directory
	opts   Options
	log    *logging.Logger

	ownPID int
	ownUID int
}

// NewRunner returns a Runner using the given reader for measurement,
// executor for privilege escalation and directory for guarded stops.
func NewRunner(reader Reader, exec privileged.Executor, dir process.Directory, opts Options) *Runner {
	return &Runner{
		reader: reader,
		exec:   exec,
		dir:    dir,
		opts:   opts.withDefaults(),
		log:    logging.Get("memory"),
		ownPID: os.Getpid(),
		ownUID: os.Getuid(),
	}
}

// Run performs the purge. The returned report is always non-nil; on
// failure it still carries the pre-operation reading and the best
// available error text. The error is non-nil only when all three
// authorization tiers failed.
//
// Run is idempotent and may be invoked repeatedly.
func (r *Runner) Run(ctx context.Context) (*types.CleanupReport, error) {
	return r.run(ctx, nil)
}

// RunWithStops terminates up to MaxStopCandidates processes before the
// purge. Every candidate passes the admission guards first; rejected
// candidates are recorded as skips, never signaled. Termination is
// best-effort: admitted candidates receive SIGTERM and the runner
// waits the grace period without verifying exit.
func (r *Runner) RunWithStops(ctx context.Context, pids []int) (*types.CleanupReport, error) {
	stops := make([]types.StopResult, 0, len(pids))
	signaled := false

	for i, pid := range pids {
		if i >= MaxStopCandidates {
			r.log.Warn("stop candidate beyond cap rejected", "pid", pid, "cap", MaxStopCandidates)
			stops = append(stops, types.StopResult{PID: pid, SkipReason: types.SkipInvalidPID})
			continue
		}

		info, err := process.Vet(ctx, r.dir, pid, r.ownPID, r.ownUID)
		if err != nil {
			var gerr *process.GuardError
			if errors.As(err, &gerr) {
				r.log.Info("stop candidate rejected", "pid", pid, "reason", gerr.Reason)
				stops = append(stops, types.StopResult{PID: pid, Name: gerr.Name, SkipReason: gerr.Reason})
				continue
			}
			stops = append(stops, types.StopResult{PID: pid, SkipReason: types.SkipInvalidPID})
			continue
		}

		if err := r.dir.Terminate(pid); err != nil {
			r.log.Warn("SIGTERM delivery failed", "pid", pid, "error", err)
			stops = append(stops, types.StopResult{PID: pid, Name: info.Name})
			continue
		}

		r.log.Info("stop candidate signaled", "pid", pid, "name", info.Name)
		stops = append(stops, types.StopResult{PID: pid, Name: info.Name, Signaled: true})
		signaled = true
	}

	if signaled {
		r.wait(ctx, r.opts.StopGrace)
	}

	return r.run(ctx, stops)
}

func (r *Runner) run(ctx context.Context, stops []types.StopResult) (*types.CleanupReport, error) {
	start := time.Now()

	report := &types.CleanupReport{
		Before: r.reader.Reading(ctx),
		Stops:  stops,
	}

	outcome, err := r.escalate(ctx)
	report.Authorization = outcome
	if err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}

	report.Immediate = r.reader.Reading(ctx)
	report.ImmediateFreeGain = types.FreeGain(report.Before.Snapshot, report.Immediate.Snapshot)
	report.ImmediateUsedDrop = types.UsedDrop(report.Before.Snapshot, report.Immediate.Snapshot)

	r.wait(ctx, r.opts.SettleDelay)

	report.Stabilized = r.reader.Reading(ctx)
	report.StabilizedFreeGain = types.FreeGain(report.Before.Snapshot, report.Stabilized.Snapshot)
	report.StabilizedUsedDrop = types.UsedDrop(report.Before.Snapshot, report.Stabilized.Snapshot)

	report.Elapsed = time.Since(start)
	return report, nil
}

// escalate walks the authorization tiers cheapest first. Any tier
// failure is absorbed and the next tier attempted; only exhaustion of
// all three returns an error.
func (r *Runner) escalate(ctx context.Context) (types.AuthorizationOutcome, error) {
	if err := r.probe(ctx); err == nil {
		if err := r.purge(ctx); err == nil {
			r.log.Info("purge authorized", "method", types.AuthMethodCached)
			return types.AuthorizationOutcome{Success: true, Method: types.AuthMethodCached}, nil
		} else {
			r.log.Warn("cached-credential purge failed", "error", err)
		}
	} else {
		r.log.Debug("no cached credential", "error", err)
	}

	if err := r.authorize(ctx); err != nil {
		r.log.Warn("interactive authorization failed", "error", err)
	} else if err := r.purge(ctx); err != nil {
		r.log.Warn("post-authorization purge failed", "error", err)
	} else {
		r.log.Info("purge authorized", "method", types.AuthMethodPrompted)
		return types.AuthorizationOutcome{Success: true, Method: types.AuthMethodPrompted}, nil
	}

	tier3Err := r.dialogPurge(ctx)
	if tier3Err == nil {
		r.log.Info("purge authorized", "method", types.AuthMethodDialog)
		return types.AuthorizationOutcome{Success: true, Method: types.AuthMethodDialog}, nil
	}
	r.log.Warn("native dialog purge failed", "error", tier3Err)

	// The dialog tier ran last, so its error is the most specific.
	err := fmt.Errorf("%w: %w", ErrAuthorizationFailed, tier3Err)
	return types.AuthorizationOutcome{Error: err.Error()}, err
}

// probe checks for a cached sudo credential without prompting.
func (r *Runner) probe(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
	defer cancel()
	return r.exec.NonInteractive(cctx, "-v")
}

// purge runs the privileged purge against cached credentials.
func (r *Runner) purge(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, r.opts.PurgeTimeout)
	defer cancel()
	return r.exec.NonInteractive(cctx, purgeCommand)
}

// authorize acquires a sudo credential through the askpass prompt.
func (r *Runner) authorize(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, r.opts.InteractiveTimeout)
	defer cancel()
	return r.exec.Interactive(cctx, "-v")
}

// dialogPurge runs the purge through the native administrator dialog.
func (r *Runner) dialogPurge(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, r.opts.PurgeTimeout)
	defer cancel()
	return r.exec.NativeDialog(cctx, purgeCommand)
}

// wait suspends for d or until the context is cancelled.
func (r *Runner) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
