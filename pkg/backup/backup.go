// Package backup implements the pre-save backup rotation of the vault file.
//
// Before every persisted change, the current vault file is copied into the
// backup folder as <stem>_<UTC timestamp><ext>; copies beyond the retention
// count are pruned oldest-first. Backup copies are best-effort: a failed copy
// is logged and never blocks the save itself.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxCount is the default number of retained backups per vault.
	DefaultMaxCount = 5

	// FileMode restricts backup copies to the owner.
	FileMode = 0o600

	// DirMode restricts the backup folder to the owner.
	DirMode = 0o700

	// timestampLayout names backup files down to the second, sortable.
	timestampLayout = "20060102_150405"

	// MinDiskSpaceBytes is the free-space floor below which backup copies
	// are skipped to avoid filling the disk.
	MinDiskSpaceBytes = 10 * 1024 * 1024
)

// Rotator snapshots a vault file before saves and prunes old snapshots.
type Rotator struct {
	dir      string
	maxCount int
	log      *zap.Logger
}

// NewRotator returns a Rotator writing into dir and keeping maxCount copies
// per vault stem. A maxCount below 1 falls back to the default.
func NewRotator(dir string, maxCount int, log *zap.Logger) *Rotator {
	if maxCount < 1 {
		maxCount = DefaultMaxCount
	}
	return &Rotator{dir: dir, maxCount: maxCount, log: log}
}

// Dir returns the backup folder path.
func (r *Rotator) Dir() string { return r.dir }

// Rotate copies the vault file at sourcePath into the backup folder with a
// UTC timestamp suffix, then prunes copies of the same stem beyond the
// retention count. Errors are logged and swallowed; the save must proceed
// regardless.
func (r *Rotator) Rotate(sourcePath string) {
	if sourcePath == "" {
		return
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return
	}

	if free, err := freeDiskSpace(r.dir); err == nil && free < MinDiskSpaceBytes {
		r.log.Warn("skipping vault backup, low disk space",
			zap.Uint64("available_bytes", free))
		return
	}

	if err := os.MkdirAll(r.dir, DirMode); err != nil {
		r.log.Error("failed to create backup folder", zap.Error(err))
		return
	}

	stem, ext := splitStem(sourcePath)
	ts := time.Now().UTC().Format(timestampLayout)
	name := fmt.Sprintf("%s_%s%s", stem, ts, ext)
	target := filepath.Join(r.dir, name)

	// Saves within the same second would collide on the timestamp; suffix a
	// counter so no snapshot is silently overwritten.
	for n := 2; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s_%s_%d%s", stem, ts, n, ext)
		target = filepath.Join(r.dir, name)
	}

	if err := copyFile(sourcePath, target); err != nil {
		r.log.Error("failed to create vault backup", zap.String("backup", name), zap.Error(err))
		return
	}
	r.log.Debug("vault backup created", zap.String("backup", name))

	if err := r.prune(stem, ext); err != nil {
		r.log.Error("failed to prune old backups", zap.Error(err))
	}
}

// List returns the backup files for the given vault path, most recent first.
func (r *Rotator) List(sourcePath string) ([]string, error) {
	stem, ext := splitStem(sourcePath)
	files, err := r.matching(stem, ext)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.path
	}
	return names, nil
}

type backupFile struct {
	path    string
	modTime time.Time
}

func (r *Rotator) matching(stem, ext string) ([]backupFile, error) {
	pattern := filepath.Join(r.dir, stem+"_*"+ext)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to list backups: %w", err)
	}

	files := make([]backupFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: p, modTime: info.ModTime()})
	}

	// Most recent first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	return files, nil
}

func (r *Rotator) prune(stem, ext string) error {
	files, err := r.matching(stem, ext)
	if err != nil {
		return err
	}
	for _, old := range files[min(len(files), r.maxCount):] {
		if err := os.Remove(old.path); err != nil {
			return fmt.Errorf("backup: failed to remove old backup %s: %w", filepath.Base(old.path), err)
		}
		r.log.Debug("rotated old backup", zap.String("backup", filepath.Base(old.path)))
	}
	return nil
}

func splitStem(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
