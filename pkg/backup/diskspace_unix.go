//go:build !windows

package backup

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// freeDiskSpace returns the bytes available to the current user on the
// filesystem holding dir. Falls back to the parent when dir does not exist
// yet.
func freeDiskSpace(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		if err := unix.Statfs(filepath.Dir(dir), &stat); err != nil {
			return 0, err
		}
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
