package sizer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/tuner"
)

// quickTimeout bounds a single du invocation. Sizing a cold Library
// tree can legitimately take a while.
const quickTimeout = 120 * time.Second

// Runner executes an external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// QuickSizer measures directory totals with du, one process per
// target rather than an in-process walk. It answers "how big is this
// cache directory" faster than a deep scan when per-file detail is
// not needed.
type QuickSizer struct {
	run     Runner
	log     *logging.Logger
	workers int
}

// NewQuickSizer returns a QuickSizer bounded to workers concurrent du
// processes. Non-positive workers fall back to the tuned default.
func NewQuickSizer(workers int) *QuickSizer {
	return NewQuickSizerWithRunner(execRunner{}, workers)
}

// NewQuickSizerWithRunner is NewQuickSizer with a caller-supplied
// command runner.
func NewQuickSizerWithRunner(run Runner, workers int) *QuickSizer {
	if workers < 1 {
		resources, _ := tuner.Detect()
		workers = tuner.Calculate(resources).FileWorkers
	}
	return &QuickSizer{
		run:     run,
		log:     logging.Get("sizer"),
		workers: workers,
	}
}

// Size returns the total bytes under path as reported by du.
func (q *QuickSizer) Size(ctx context.Context, path string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, quickTimeout)
	defer cancel()

	out, err := q.run.Output(ctx, "du", "-sk", path)
	// du exits non-zero when it cannot read some entries but still
	// prints the total it could reach. Keep the partial total.
	if err != nil && len(out) == 0 {
		return 0, fmt.Errorf("du %s: %w", path, err)
	}
	return ParseDU(out)
}

// SizeAll sizes every path concurrently, bounded by the worker count.
// Paths that cannot be sized map to zero.
func (q *QuickSizer) SizeAll(ctx context.Context, paths []string) map[string]int64 {
	sizes := make(map[string]int64, len(paths))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, q.workers)
	)
	for _, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			size, err := q.Size(ctx, path)
			if err != nil {
				q.log.Debug("quick size failed", "path", path, "error", err)
			}
			mu.Lock()
			sizes[path] = size
			mu.Unlock()
		}()
	}
	wg.Wait()

	return sizes
}

// ParseDU extracts the KiB total from `du -sk` output and converts it
// to bytes.
func ParseDU(out []byte) (int64, error) {
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0, errors.New("empty du output")
	}
	kib, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse du output: %w", err)
	}
	return kib * 1024, nil
}
