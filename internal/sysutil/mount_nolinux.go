//go:build !linux

package sysutil

import "time"

func WaitForMount(devPath string, timeout time.Duration) string { return "" }

func MountSources() map[string]string { return map[string]string{} }
