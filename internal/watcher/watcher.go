// Package watcher wakes the scan loop early when removable media come or go.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DeviceWatcher emits a value on the returned channel whenever the set of
// mounted media may have changed. Bursts are coalesced into one wake-up.
type DeviceWatcher interface {
	Start() (<-chan struct{}, error)
	Stop()
}

func New(mountBase string) DeviceWatcher {
	return newWatcher(mountBase)
}

type wakeup chan struct{}

func (w wakeup) signal() {
	select {
	case w <- struct{}{}:
	default:
	}
}

// baseWatcher follows entries appearing in and leaving the mount base. When the
// base does not exist yet, its parent is watched until it shows up.
type baseWatcher struct {
	base     string
	fsw      *fsnotify.Watcher
	wake     wakeup
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func startBaseWatcher(base string, wake wakeup) (*baseWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	b := &baseWatcher{
		base: filepath.Clean(base),
		fsw:  fsw,
		wake: wake,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if err := b.watchBase(); err != nil {
		fsw.Close()
		return nil, err
	}
	go b.loop()
	return b, nil
}

func (b *baseWatcher) watchBase() error {
	err := b.fsw.Add(b.base)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return err
	}
	// No media mounted yet and the automounter has not created the base.
	return b.fsw.Add(filepath.Dir(b.base))
}

func (b *baseWatcher) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case event, ok := <-b.fsw.Events:
			if !ok {
				return
			}
			b.handle(event)
		case err, ok := <-b.fsw.Errors:
			if !ok {
				return
			}
			sysutil.Log.Debug("fsnotify error", zap.Error(err))
		}
	}
}

func (b *baseWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Clean(event.Name)
	switch filepath.Dir(name) {
	case b.base:
		sysutil.Log.Debug("Mount base changed", zap.String("entry", name), zap.Stringer("op", event.Op))
		b.wake.signal()
	case filepath.Dir(b.base):
		if name != b.base {
			return
		}
		if event.Has(fsnotify.Create) {
			if err := b.fsw.Add(b.base); err != nil {
				sysutil.Log.Debug("Cannot watch mount base", zap.String("base", b.base), zap.Error(err))
			}
		}
		b.wake.signal()
	}
}

func (b *baseWatcher) close() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.fsw.Close()
		<-b.done
	})
}
