//go:build linux

package watcher

import (
	"strings"
	"time"

	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/pilebones/go-udev/netlink"
	"go.uber.org/zap"
)

// mountWait bounds how long an add event waits for the automounter.
const mountWait = 3 * time.Second

type linuxWatcher struct {
	base string
	wake wakeup
	stop chan struct{}
	fs   *baseWatcher
}

func newWatcher(mountBase string) DeviceWatcher {
	return &linuxWatcher{
		base: mountBase,
		wake: make(wakeup, 1),
		stop: make(chan struct{}),
	}
}

func (w *linuxWatcher) Start() (<-chan struct{}, error) {
	fsWatcher, err := startBaseWatcher(w.base, w.wake)
	if err != nil {
		// Udev alone still catches plug events.
		sysutil.Log.Warn("Cannot watch mount base", zap.String("base", w.base), zap.Error(err))
	}
	w.fs = fsWatcher

	// Listen to udev events on NETLINK_KOBJECT_UEVENT.
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		if w.fs == nil {
			return nil, err
		}
		sysutil.Log.Warn("Udev monitor unavailable, relying on mount base events", zap.Error(err))
		return w.wake, nil
	}
	queue := make(chan netlink.UEvent)
	errChan := make(chan error)
	quit := conn.Monitor(queue, errChan, nil)

	go func() {
		defer conn.Close()
		for {
			select {
			case <-w.stop:
				close(quit)
				return
			case err := <-errChan:
				// Malformed messages are not fatal; keep listening.
				sysutil.Log.Debug("udev monitor error", zap.Error(err))
			case uevent := <-queue:
				w.handleUdevEvent(uevent)
			}
		}
	}()
	return w.wake, nil
}

func (w *linuxWatcher) Stop() {
	close(w.stop)
	if w.fs != nil {
		w.fs.close()
	}
}

func (w *linuxWatcher) handleUdevEvent(uevent netlink.UEvent) {
	if uevent.Env["SUBSYSTEM"] != "block" {
		return
	}
	if devType := uevent.Env["DEVTYPE"]; devType != "partition" && devType != "disk" {
		return
	}

	devName := uevent.Env["DEVNAME"]
	if !strings.HasPrefix(devName, "/dev") {
		devName = "/dev/" + devName
	}

	switch uevent.Action {
	case netlink.ADD:
		go w.wakeWhenMounted(devName)
	case netlink.REMOVE:
		sysutil.Log.Debug("Block device removed", zap.String("dev", devName))
		w.wake.signal()
	}
}

// The partition shows up in udev before the automounter mounts it.
func (w *linuxWatcher) wakeWhenMounted(devName string) {
	mountPoint := sysutil.WaitForMount(devName, mountWait)
	if mountPoint == "" {
		sysutil.Log.Debug("Block device added but not mounted (timeout)", zap.String("dev", devName))
	} else {
		sysutil.Log.Debug("Block device mounted", zap.String("dev", devName), zap.String("mount", mountPoint))
	}
	select {
	case <-w.stop:
	default:
		w.wake.signal()
	}
}
