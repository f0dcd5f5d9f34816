//go:build !linux

package watcher

type fsOnlyWatcher struct {
	base string
	wake wakeup
	fs   *baseWatcher
}

func newWatcher(mountBase string) DeviceWatcher {
	return &fsOnlyWatcher{base: mountBase, wake: make(wakeup, 1)}
}

func (w *fsOnlyWatcher) Start() (<-chan struct{}, error) {
	fsWatcher, err := startBaseWatcher(w.base, w.wake)
	if err != nil {
		return nil, err
	}
	w.fs = fsWatcher
	return w.wake, nil
}

func (w *fsOnlyWatcher) Stop() {
	if w.fs != nil {
		w.fs.close()
	}
}
