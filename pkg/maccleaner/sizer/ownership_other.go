//go:build !unix

package sizer

import "os"

func getOwnership(info os.FileInfo) (owner, group string) {
	return "unknown", "unknown"
}
