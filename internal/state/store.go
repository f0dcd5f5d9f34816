// Package state persists the label -> link paths mapping between runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hara602/gcodeSentry/internal/model"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"go.uber.org/zap"
)

// Store reads and writes the state file. It is not safe for use by several
// processes at once.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the persisted state, or an empty one when the file does not
// exist yet or is empty.
func (s *Store) Load() (model.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		sysutil.Log.Debug("No state file, starting empty", zap.String("path", s.path))
		return model.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return model.State{}, nil
	}

	var st model.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if st == nil {
		st = model.State{}
	}
	for label := range st {
		if !validLabel(label) {
			return nil, fmt.Errorf("invalid device label %q in state file %s", label, s.path)
		}
	}
	sysutil.Log.Debug("State loaded",
		zap.String("path", s.path),
		zap.Int("devices", len(st)),
		zap.Int("links", st.LinkCount()))
	return st, nil
}

// Save overwrites the state file. The content is written to a temporary file
// in the same directory and renamed into place, so readers see either the old
// or the new file in full. Map keys are written in sorted order.
func (s *Store) Save(st model.State) error {
	if st == nil {
		st = model.State{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod state file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}
	committed = true

	sysutil.Log.Debug("State saved", zap.String("path", s.path), zap.Int("devices", len(st)))
	return nil
}

// validLabel rejects keys that would not name a directory directly under the
// mirror root.
func validLabel(label string) bool {
	switch label {
	case "", ".", "..":
		return false
	}
	return filepath.Base(label) == label && !strings.ContainsRune(label, filepath.Separator)
}
