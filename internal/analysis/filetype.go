package analysis

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Result of sniffing a file header.
type Result struct {
	Accepted    bool   // content is plausible for the declared extension
	RealType    string // type from the magic bytes, "unknown" for text and unrecognized data
	DeclaredExt string // extension from the file name, without dot
	Message     string
}

// TypeInspector rejects files whose header shows a binary format that does
// not belong to their extension, e.g. a zip or ELF renamed to .gcode.
// G-code is plain text and has no magic bytes, so it always passes.
type TypeInspector struct {
	// declared extension -> binary types it may legitimately contain
	aliasMap map[string]map[string]bool
}

func NewTypeInspector() *TypeInspector {
	inspector := &TypeInspector{
		aliasMap: make(map[string]map[string]bool),
	}
	inspector.initRules()
	return inspector
}

// initRules lists the printer formats that are containers of a known binary type.
func (t *TypeInspector) initRules() {
	allow := func(ext string, realTypes ...string) {
		if _, ok := t.aliasMap[ext]; !ok {
			t.aliasMap[ext] = make(map[string]bool)
		}
		for _, rt := range realTypes {
			t.aliasMap[ext][rt] = true
		}
	}

	allow("ufp", "zip") // Ultimaker format package
	allow("3mf", "zip")
	allow("gcode", "gz") // compressed uploads some slicers produce
	allow("gz", "gz")
	allow("zip", "zip")
}

// headerSize is the prefix length filetype needs to match every type it knows.
const headerSize = 262

func (t *TypeInspector) Inspect(filePath string) (*Result, error) {
	declaredExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if n == 0 {
		return &Result{Accepted: true, RealType: "unknown", DeclaredExt: declaredExt, Message: "Empty file"}, nil
	}

	kind, _ := filetype.Match(head[:n])
	if kind == filetype.Unknown {
		return &Result{
			Accepted:    true,
			RealType:    "unknown",
			DeclaredExt: declaredExt,
			Message:     "No binary signature (likely text)",
		}, nil
	}

	realType := kind.Extension
	if realType == declaredExt || t.aliasMap[declaredExt][realType] {
		return &Result{Accepted: true, RealType: realType, DeclaredExt: declaredExt}, nil
	}

	return &Result{
		Accepted:    false,
		RealType:    realType,
		DeclaredExt: declaredExt,
		Message:     fmt.Sprintf("Type mismatch: header is '%s' but file is '%s'", realType, declaredExt),
	}, nil
}
