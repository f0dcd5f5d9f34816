package model

import (
	"path/filepath"
	"slices"
	"sort"
)

// Device is a mounted removable medium under the mount base.
type Device struct {
	Label      string // mount directory name, e.g. "USB1"
	Root       string // e.g. /media/usb/USB1
	DevicePath string // e.g. /dev/sdb1, empty when the mount table has no entry
}

// SourceFile is a matching file found directly under a device root.
type SourceFile struct {
	Path string
	Name string
}

func NewSourceFile(path string) SourceFile {
	return SourceFile{Path: path, Name: filepath.Base(path)}
}

// Snapshot maps device label to the matching files found on it this cycle.
type Snapshot map[string][]SourceFile

// Labels returns the snapshot labels in sorted order.
func (s Snapshot) Labels() []string {
	return sortedKeys(s)
}

// State maps device label to the link paths materialized for it.
// It is the only thing persisted between cycles.
type State map[string][]string

// Labels returns the state labels in sorted order.
func (s State) Labels() []string {
	return sortedKeys(s)
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for label, links := range s {
		out[label] = slices.Clone(links)
	}
	return out
}

// Merge returns a copy of s with every label of over added or replaced.
func (s State) Merge(over State) State {
	out := s.Clone()
	for label, links := range over {
		out[label] = slices.Clone(links)
	}
	return out
}

// Equal reports whether both states hold the same labels with the same links
// in the same order. A nil state equals an empty one.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for label, links := range s {
		o, ok := other[label]
		if !ok || !slices.Equal(links, o) {
			return false
		}
	}
	return true
}

// LinkCount is the total number of links across all devices.
func (s State) LinkCount() int {
	n := 0
	for _, links := range s {
		n += len(links)
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
