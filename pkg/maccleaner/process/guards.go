package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// ErrGuardRejected indicates a stop candidate failed an admission
// guard. It is non-fatal; callers record the skip and continue.
var ErrGuardRejected = errors.New("guard rejected")

// denyList names processes that are never admitted for termination,
// whoever owns them. Matching is a case-insensitive substring test
// against the process name.
var denyList = []string{
	"WindowServer",
	"loginwindow",
	"kernel_task",
	"launchd",
	"Finder",
	"Dock",
	"SystemUIServer",
	"coreaudiod",
	"bluetoothd",
}

// GuardError reports why a stop candidate was rejected. Reason is one
// of the skip reason strings recorded in StopResult.
type GuardError struct {
	PID    int
	Name   string
	Reason string
}

func (e *GuardError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("pid %d (%s): %s", e.PID, e.Name, e.Reason)
	}
	return fmt.Sprintf("pid %d: %s", e.PID, e.Reason)
}

func (e *GuardError) Unwrap() error { return ErrGuardRejected }

// DeniedName reports whether a process name matches the deny-list.
func DeniedName(name string) bool {
	lowered := strings.ToLower(name)
	for _, entry := range denyList {
		if strings.Contains(lowered, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}

// Vet checks a stop candidate against the admission guards in order:
// the PID must be plausible and not the invoking process, it must
// resolve to a running process, and the process must belong to the
// invoking user with a name outside the deny-list. Admitted candidates
// return their process record; rejected ones return a *GuardError.
func Vet(ctx context.Context, dir Directory, pid, ownPID, ownUID int) (types.ProcessInfo, error) {
	if pid <= 1 || pid == ownPID {
		return types.ProcessInfo{}, &GuardError{PID: pid, Reason: types.SkipInvalidPID}
	}

	info, err := dir.Lookup(ctx, pid)
	if err != nil {
		return types.ProcessInfo{}, &GuardError{PID: pid, Reason: types.SkipNotFound}
	}

	if info.Owner != ownUID || DeniedName(info.Name) {
		return types.ProcessInfo{}, &GuardError{PID: pid, Name: info.Name, Reason: types.SkipNotAllowed}
	}

	return info, nil
}
