package agent

import (
	"os"
	"path/filepath"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// RecoverFromStaleAgent checks for and cleans up artifacts left by a
// crashed agent: the PID file, the Unix socket, and the Badger lock
// under the telemetry database. Returns nil if cleanup succeeded or
// wasn't needed, ErrAgentAlreadyRunning if a live agent holds the PID.
func RecoverFromStaleAgent(pidPath, socketPath, dbPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// No PID file or invalid PID means nothing to recover.
		return nil //nolint:nilerr // missing/invalid PID file is not an error condition
	}

	if IsProcessRunning(pid) {
		return ErrAgentAlreadyRunning
	}

	log := logging.Get("agent")
	log.Warn("cleaning up stale agent files", "stale_pid", pid)

	// Remove stale files (ignore errors - files may not exist)
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	_ = os.Remove(filepath.Join(dbPath, "LOCK"))

	return nil
}
