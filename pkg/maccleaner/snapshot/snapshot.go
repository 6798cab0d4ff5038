// Package snapshot reads system telemetry: memory figures, memory
// pressure, CPU, disk, battery and network ports. Memory and pressure
// come from OS utilities (vm_stat, memory_pressure, sysctl); CPU, disk
// and host figures come from gopsutil; battery and network come from
// pmset, system_profiler and networksetup.
//
// All command-output parsing is isolated behind the Runner interface so
// it is unit-testable against captured fixture strings. Collectors
// degrade on failure: a missing or malformed source yields a zeroed
// snapshot or an unknown reading, never an error to the caller.
package snapshot

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Command timeouts. Informational reads are cheap; system_profiler can
// take several seconds on first invocation.
const (
	infoTimeout     = 10 * time.Second
	profilerTimeout = 15 * time.Second
)

// ErrSnapshotUnavailable indicates that an informational read failed.
// Collectors absorb it and degrade to zero values; it surfaces only in
// logs and in parse-level helpers.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// Runner executes an external command and returns its standard output.
// The production runner shells out; tests substitute canned fixtures.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the production Runner.
type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Reader is the full telemetry surface. The status command, the
// dashboard and the agent sampler consume it; the purge runner needs
// only the memory methods.
type Reader interface {
	// ReadMemorySnapshot returns the current memory figures, or a
	// zeroed snapshot when the source is unavailable.
	ReadMemorySnapshot(ctx context.Context) types.ResourceSnapshot

	// ReadPressure returns the current memory pressure, or an unknown
	// reading when the source is unavailable.
	ReadPressure(ctx context.Context) types.PressureReading

	// CPU returns processor utilization and load averages.
	CPU(ctx context.Context) types.CPUStats

	// Disk returns usage of the root filesystem.
	Disk(ctx context.Context) types.DiskStats

	// Battery returns battery state; Present is false without one.
	Battery(ctx context.Context) types.BatteryInfo

	// Host returns machine identity and uptime.
	Host(ctx context.Context) types.HostStats

	// NetworkPorts returns the hardware network ports.
	NetworkPorts(ctx context.Context) []types.NetworkPort

	// Sample aggregates one complete telemetry observation.
	Sample(ctx context.Context) types.TelemetrySample
}

// CommandReader is the production Reader.
type CommandReader struct {
	run Runner
	log *logging.Logger
}

var _ Reader = (*CommandReader)(nil)

// NewReader returns a Reader backed by real command execution.
func NewReader() *CommandReader {
	return NewReaderWithRunner(execRunner{})
}

// NewReaderWithRunner returns a Reader backed by the given Runner.
// Tests use it to substitute fixture output for real commands.
func NewReaderWithRunner(run Runner) *CommandReader {
	return &CommandReader{
		run: run,
		log: logging.Get("snapshot"),
	}
}

// Sample collects one complete telemetry observation.
func (r *CommandReader) Sample(ctx context.Context) types.TelemetrySample {
	return types.TelemetrySample{
		TakenAt:  time.Now(),
		Memory:   r.ReadMemorySnapshot(ctx),
		Pressure: r.ReadPressure(ctx),
		CPU:      r.CPU(ctx),
		Disk:     r.Disk(ctx),
		Battery:  r.Battery(ctx),
	}
}

// Reading captures a paired memory snapshot and pressure observation.
func (r *CommandReader) Reading(ctx context.Context) types.MemoryReading {
	return types.MemoryReading{
		Snapshot: r.ReadMemorySnapshot(ctx),
		Pressure: r.ReadPressure(ctx),
		TakenAt:  time.Now(),
	}
}
