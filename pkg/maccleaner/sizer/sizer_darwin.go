//go:build darwin

package sizer

import (
	"os"
	"syscall"
	"time"
)

// getCreateTime returns the file's creation time from the stat birth
// time.
func getCreateTime(info os.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
}
