package privileged

import (
	"fmt"
	"os"
)

// askpassScript is the program sudo invokes to collect the user's
// password when running with -A. osascript shows a masked input dialog
// and the entered text is echoed to stdout, which sudo reads.
const askpassScript = `#!/bin/sh
osascript -e 'display dialog "MacCleaner needs an administrator password to continue." default answer "" with title "MacCleaner" with icon caution with hidden answer' -e 'text returned of result'
`

// writeAskpassHelper writes the askpass helper to a private temporary
// file, executable and readable by the invoking user only. The
// returned cleanup removes it.
func writeAskpassHelper() (string, func(), error) {
	f, err := os.CreateTemp("", "maccleaner-askpass-*.sh")
	if err != nil {
		return "", nil, fmt.Errorf("create helper file: %w", err)
	}
	path := f.Name()

	if _, err := f.WriteString(askpassScript); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("write helper file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("close helper file: %w", err)
	}

	if err := os.Chmod(path, 0o700); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("chmod helper file: %w", err)
	}

	return path, func() { os.Remove(path) }, nil
}
