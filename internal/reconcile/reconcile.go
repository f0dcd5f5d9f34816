// Package reconcile keeps the mirror tree of per-device symlinks in line with
// the devices and files found by the latest scan.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Hara602/gcodeSentry/internal/model"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"go.uber.org/zap"
)

// DirRemoval is the outcome of removing the mirror directory of a device
// that went away.
type DirRemoval int

const (
	DirRemoved DirRemoval = iota
	DirMissing
	DirNotEmpty
	DirPermissionDenied
	DirFailed
)

func (d DirRemoval) String() string {
	switch d {
	case DirRemoved:
		return "removed"
	case DirMissing:
		return "missing"
	case DirNotEmpty:
		return "not_empty"
	case DirPermissionDenied:
		return "permission_denied"
	default:
		return "failed"
	}
}

func (d DirRemoval) Kept() bool {
	return d != DirRemoved && d != DirMissing
}

// Report counts what one Apply changed on disk.
type Report struct {
	LinksCreated  int
	LinksReplaced int
	LinksRemoved  int
	DirsRemoved   int
	Conflicts     int
	// Removals holds the directory outcome for each device that went away.
	Removals map[string]DirRemoval
}

func (r Report) Mutations() int {
	return r.LinksCreated + r.LinksReplaced + r.LinksRemoved + r.DirsRemoved
}

func (r Report) Warnings() int {
	n := r.Conflicts
	for _, outcome := range r.Removals {
		if outcome.Kept() {
			n++
		}
	}
	return n
}

type Reconciler struct {
	root string
}

func New(root string) *Reconciler {
	return &Reconciler{root: root}
}

// Apply makes the mirror tree match snap and returns the state to persist.
//
// Devices in snap get one symlink per source file and lose every other file or
// symlink in their directory. Devices only in prior lose their whole directory;
// when the directory itself cannot be removed the device stays in the returned
// state with no links, so the next Apply retries it.
//
// On a filesystem error the returned state holds only the devices touched
// before the failure. Merged over prior it is the state to carry into the next
// cycle.
func (r *Reconciler) Apply(snap model.Snapshot, prior model.State) (model.State, Report, error) {
	report := Report{Removals: make(map[string]DirRemoval)}
	next := make(model.State, len(snap))

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return next, report, fmt.Errorf("create mirror root %s: %w", r.root, err)
	}

	for _, label := range snap.Labels() {
		links, err := r.syncDevice(label, snap[label], &report)
		if err != nil {
			next[label] = []string{}
			return next, report, err
		}
		next[label] = links
	}

	for _, label := range prior.Labels() {
		if _, ok := snap[label]; ok {
			continue
		}
		outcome, err := r.removeDevice(label, &report)
		if err != nil {
			return next, report, err
		}
		report.Removals[label] = outcome
		if outcome.Kept() {
			next[label] = []string{}
		}
	}

	return next, report, nil
}

func (r *Reconciler) syncDevice(label string, files []model.SourceFile, report *Report) ([]string, error) {
	deviceDir := filepath.Join(r.root, label)
	if err := os.MkdirAll(deviceDir, 0o755); err != nil {
		return nil, fmt.Errorf("create device dir %s: %w", deviceDir, err)
	}

	sorted := make([]model.SourceFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	links := make([]string, 0, len(sorted))
	owners := make(map[string]string, len(sorted))
	for _, src := range sorted {
		target, err := filepath.Abs(src.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve source %s: %w", src.Path, err)
		}
		linkPath := filepath.Join(deviceDir, src.Name)

		if owner, taken := owners[linkPath]; taken {
			report.Conflicts++
			sysutil.Log.Warn("Link name conflict, keeping first file",
				zap.String("link", linkPath),
				zap.String("kept", owner),
				zap.String("skipped", target))
			continue
		}
		owners[linkPath] = target

		if err := r.ensureLink(linkPath, target, report); err != nil {
			return nil, err
		}
		links = append(links, linkPath)
	}

	// Sweep what this cycle did not ensure: files that left the device or no
	// longer pass the filter. Directories are left alone.
	entries, err := os.ReadDir(deviceDir)
	if err != nil {
		return nil, fmt.Errorf("read device dir %s: %w", deviceDir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(deviceDir, entry.Name())
		if _, ok := owners[path]; ok {
			continue
		}
		if !isFileOrLink(entry) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale link %s: %w", path, err)
		}
		report.LinksRemoved++
		sysutil.Log.Info("Removed stale link", zap.String("link", path))
	}

	return links, nil
}

func (r *Reconciler) ensureLink(linkPath, target string, report *Report) error {
	info, err := os.Lstat(linkPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Symlink(target, linkPath); err != nil {
			return fmt.Errorf("link %s -> %s: %w", linkPath, target, err)
		}
		report.LinksCreated++
		sysutil.Log.Info("Linked", zap.String("link", linkPath), zap.String("target", target))
		return nil
	case err != nil:
		return fmt.Errorf("stat %s: %w", linkPath, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		if dest, err := os.Readlink(linkPath); err == nil && dest == target {
			return nil
		}
	}

	if err := os.Remove(linkPath); err != nil {
		return fmt.Errorf("remove %s: %w", linkPath, err)
	}
	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("link %s -> %s: %w", linkPath, target, err)
	}
	report.LinksReplaced++
	sysutil.Log.Info("Relinked", zap.String("link", linkPath), zap.String("target", target))
	return nil
}

// removeDevice empties and removes the mirror directory of a device that is
// gone. Failing to remove the directory itself is not an error.
func (r *Reconciler) removeDevice(label string, report *Report) (DirRemoval, error) {
	deviceDir := filepath.Join(r.root, label)

	entries, err := os.ReadDir(deviceDir)
	if errors.Is(err, fs.ErrNotExist) {
		return DirMissing, nil
	}
	if err != nil {
		return DirFailed, fmt.Errorf("read device dir %s: %w", deviceDir, err)
	}

	for _, entry := range entries {
		if !isFileOrLink(entry) {
			continue
		}
		path := filepath.Join(deviceDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return DirFailed, fmt.Errorf("remove link %s: %w", path, err)
		}
		report.LinksRemoved++
		sysutil.Log.Info("Removed link", zap.String("link", path))
	}

	rmErr := os.Remove(deviceDir)
	outcome := classifyRemoval(rmErr)
	switch outcome {
	case DirRemoved:
		report.DirsRemoved++
		sysutil.Log.Info("Removed device directory", zap.String("dir", deviceDir))
	case DirMissing:
	default:
		sysutil.Log.Warn("Unable to remove directory",
			zap.String("dir", deviceDir),
			zap.Stringer("reason", outcome),
			zap.Error(rmErr))
	}
	return outcome, nil
}

func classifyRemoval(err error) DirRemoval {
	switch {
	case err == nil:
		return DirRemoved
	case errors.Is(err, fs.ErrNotExist):
		return DirMissing
	case sysutil.IsDirNotEmpty(err):
		return DirNotEmpty
	case errors.Is(err, fs.ErrPermission):
		return DirPermissionDenied
	default:
		return DirFailed
	}
}

func isFileOrLink(entry fs.DirEntry) bool {
	t := entry.Type()
	return t.IsRegular() || t&fs.ModeSymlink != 0
}
