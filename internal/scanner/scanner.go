// Package scanner lists the printable files sitting directly on a device.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Hara602/gcodeSentry/internal/analysis"
	"github.com/Hara602/gcodeSentry/internal/model"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"go.uber.org/zap"
)

// ContentInspector vets a file by its content. *analysis.TypeInspector
// satisfies it.
type ContentInspector interface {
	Inspect(path string) (*analysis.Result, error)
}

type Scanner struct {
	extensions []string
	inspector  ContentInspector
}

// New builds a scanner for already normalized extensions. inspector may be nil
// to accept files on their name alone.
func New(extensions []string, inspector ContentInspector) *Scanner {
	return &Scanner{extensions: extensions, inspector: inspector}
}

// Scan returns the regular files directly under root whose lower-cased
// extension is accepted, sorted by name. Subdirectories, symlinks and special
// files are ignored.
func (s *Scanner) Scan(root string) ([]model.SourceFile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read device %s: %w", root, err)
	}

	files := make([]model.SourceFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !slices.Contains(s.extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if !s.accept(path) {
			continue
		}
		files = append(files, model.NewSourceFile(path))
	}
	return files, nil
}

func (s *Scanner) accept(path string) bool {
	if s.inspector == nil {
		return true
	}
	result, err := s.inspector.Inspect(path)
	if err != nil {
		// Unreadable now, maybe readable next cycle.
		sysutil.Log.Warn("Content check failed, skipping file", zap.String("file", path), zap.Error(err))
		return false
	}
	if !result.Accepted {
		sysutil.Log.Warn("Skipping file with mismatched content",
			zap.String("file", path),
			zap.String("type", result.RealType),
			zap.String("detail", result.Message))
		return false
	}
	return true
}
