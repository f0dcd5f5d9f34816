// Package discovery finds removable media mounted directly under a base
// directory.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Hara602/gcodeSentry/internal/model"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"go.uber.org/zap"
)

// MountChecker reports whether a directory is a mount point.
type MountChecker func(path string) (bool, error)

type Discoverer struct {
	base    string
	isMount MountChecker
	sources func() map[string]string
}

func New(base string) *Discoverer {
	return &Discoverer{
		base:    base,
		isMount: sysutil.IsMountPoint,
		sources: sysutil.MountSources,
	}
}

// WithMountChecker replaces the mount-point test.
func (d *Discoverer) WithMountChecker(fn MountChecker) *Discoverer {
	d.isMount = fn
	return d
}

// Discover returns every immediate child of the base directory that is a real
// directory and a mount point, keyed by its name. A missing base directory
// means no media is inserted and yields an empty map.
func (d *Discoverer) Discover() (map[string]model.Device, error) {
	devices := make(map[string]model.Device)

	base, err := filepath.Abs(d.base)
	if err != nil {
		return nil, fmt.Errorf("resolve mount base %s: %w", d.base, err)
	}
	entries, err := os.ReadDir(base)
	if errors.Is(err, os.ErrNotExist) {
		sysutil.Log.Debug("Mount base missing, no devices", zap.String("base", base))
		return devices, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mount base %s: %w", base, err)
	}

	var sources map[string]string
	for _, entry := range entries {
		// DirEntry types come from lstat, so symlinks to directories are skipped here.
		if !entry.IsDir() {
			continue
		}
		root := filepath.Join(base, entry.Name())
		mounted, err := d.isMount(root)
		if err != nil {
			// The medium may have been pulled between ReadDir and the check.
			sysutil.Log.Debug("Mount check failed", zap.String("path", root), zap.Error(err))
			continue
		}
		if !mounted {
			continue
		}

		if sources == nil && d.sources != nil {
			sources = d.sources()
		}
		devices[entry.Name()] = model.Device{
			Label:      entry.Name(),
			Root:       root,
			DevicePath: sources[root],
		}
	}
	return devices, nil
}
