//go:build windows

package backup

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// freeDiskSpace returns the bytes available to the current user on the
// volume holding dir. Falls back to the parent when dir does not exist yet.
func freeDiskSpace(dir string) (uint64, error) {
	path := dir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Dir(path)
	}

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}
