//go:build !unix

package sysutil

import "errors"

func IsMountPoint(path string) (bool, error) {
	return false, errors.New("mount point detection is not supported on this platform")
}

func IsDirNotEmpty(err error) bool { return false }
