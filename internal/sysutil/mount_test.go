//go:build linux

package sysutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMountPoint(t *testing.T) {
	ok, err := IsMountPoint("/")
	require.NoError(t, err)
	assert.True(t, ok, "filesystem root is always a mount point")

	dir := t.TempDir()
	sub := filepath.Join(dir, "plain")
	require.NoError(t, os.Mkdir(sub, 0o755))
	ok, err = IsMountPoint(sub)
	require.NoError(t, err)
	assert.False(t, ok)

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("/", link))
	ok, err = IsMountPoint(link)
	require.NoError(t, err)
	assert.False(t, ok, "symlinks are not mount points")

	_, err = IsMountPoint(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestReadMounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	content := "sysfs /sys sysfs rw 0 0\n" +
		"/dev/sdb1 /media/usb/USB1 vfat rw 0 0\n" +
		"/dev/sdc1 /media/usb/MY\\040STICK vfat rw 0 0\n" +
		"/dev/loop0 /snap/core squashfs ro 0 0\n" +
		"garbage\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got := readMounts(path)
	assert.Equal(t, map[string]string{
		"/dev/sdb1": "/media/usb/USB1",
		"/dev/sdc1": "/media/usb/MY STICK",
	}, got)
}

func TestReadMountsMissingFile(t *testing.T) {
	assert.Empty(t, readMounts(filepath.Join(t.TempDir(), "nope")))
}
