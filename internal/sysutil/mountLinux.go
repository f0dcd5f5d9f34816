//go:build linux

package sysutil

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

const procMounts = "/proc/mounts"

// WaitForMount polls /proc/mounts until devPath shows up and returns its mount
// point, or "" after timeout. Udev reports a partition before the automounter
// has mounted it.
func WaitForMount(devPath string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		for dev, mnt := range readMounts(procMounts) {
			if dev == devPath {
				return mnt
			}
		}
		if time.Now().After(deadline) {
			return ""
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// MountSources maps mount point to the block device backing it. Only /dev
// sources are kept.
func MountSources() map[string]string {
	out := make(map[string]string)
	for dev, mnt := range readMounts(procMounts) {
		out[mnt] = dev
	}
	return out
}

// readMounts returns device -> mount point for every /dev entry (loop devices
// excluded) in a mounts(5) formatted file.
func readMounts(path string) map[string]string {
	out := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		// e.g. /dev/sdb1 /media/usb/USB1 vfat rw 0 0
		dev, mnt := fields[0], unescapeMountField(fields[1])
		if !strings.HasPrefix(dev, "/dev/") || strings.HasPrefix(dev, "/dev/loop") {
			continue
		}
		out[dev] = mnt
	}
	return out
}

// unescapeMountField decodes the octal escapes (\040 for space, ...) the
// kernel uses in /proc/mounts.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
