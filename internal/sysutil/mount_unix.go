//go:build unix

package sysutil

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// IsMountPoint reports whether path is the root of a mounted filesystem: its
// device differs from its parent's, or it is the same inode as its parent
// (the filesystem root). Symlinks are never mount points.
func IsMountPoint(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, fmt.Errorf("lstat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT == unix.S_IFLNK {
		return false, nil
	}

	var parent unix.Stat_t
	if err := unix.Lstat(filepath.Join(path, ".."), &parent); err != nil {
		return false, fmt.Errorf("lstat %s/..: %w", path, err)
	}
	if uint64(st.Dev) != uint64(parent.Dev) {
		return true, nil
	}
	return st.Ino == parent.Ino, nil
}

// IsDirNotEmpty reports whether err is the rmdir failure for a directory that
// still has entries.
func IsDirNotEmpty(err error) bool {
	return errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, unix.EEXIST)
}
