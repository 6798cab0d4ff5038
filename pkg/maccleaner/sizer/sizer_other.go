//go:build !darwin

package sizer

import (
	"os"
	"time"
)

// getCreateTime falls back to the modification time where birth time
// is unavailable.
func getCreateTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
