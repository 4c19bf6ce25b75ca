package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wodrun/internal/ir"
)

// Document is a loaded statement document.
type Document struct {
	Name    string
	Version int
	Script  *ir.Script
}

// rawDocument is the on-disk shape shared by every format.
type rawDocument struct {
	Version    int             `yaml:"version"`
	Name       string          `yaml:"name"`
	Statements []*ir.Statement `yaml:"statements"`
}

// Load reads a document from path, choosing the format by extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		doc, err = LoadCUE(filepath.Base(path), data)
	case ".yaml", ".yml", ".json":
		doc, err = LoadYAML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported document type %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// LoadYAML decodes a YAML or JSON statement document. Unknown keys are
// rejected.
func LoadYAML(data []byte) (*Document, error) {
	var raw rawDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return build(raw)
}

func build(raw rawDocument) (*Document, error) {
	for _, st := range raw.Statements {
		if st == nil {
			return nil, fmt.Errorf("empty statement entry")
		}
		for i := range st.Fragments {
			if err := normalize(&st.Fragments[i]); err != nil {
				return nil, fmt.Errorf("statement %d fragments[%d]: %w", st.ID, i, err)
			}
		}
	}

	s, err := ir.NewScript(raw.Statements)
	if err != nil {
		return nil, err
	}
	return &Document{Name: raw.Name, Version: raw.Version, Script: s}, nil
}

// FromStatements normalizes statements decoded elsewhere (an inline
// scenario script, for example) and indexes them.
func FromStatements(statements []*ir.Statement) (*ir.Script, error) {
	doc, err := build(rawDocument{Statements: statements})
	if err != nil {
		return nil, err
	}
	return doc.Script, nil
}

// normalize converts decoded values to the types the engine reads.
// Floats are left alone so validation can report them.
func normalize(f *ir.Fragment) error {
	if f.Class == "" {
		f.Class = ir.ClassDefined
	}

	switch v := f.Value.(type) {
	case int:
		f.Value = int64(v)
	case uint64:
		f.Value = int64(v)
	case []any:
		ints := make([]int64, len(v))
		for i, item := range v {
			n, ok := item.(int)
			if !ok {
				return fmt.Errorf("%s list must hold integers, got %T", f.Type, item)
			}
			ints[i] = int64(n)
		}
		f.Value = ints
	case string:
		switch f.Type {
		case ir.FragmentTimer:
			d, err := ParseDuration(v)
			if err != nil {
				return err
			}
			f.Value = d.Milliseconds()
		case ir.FragmentRounds:
			reps, err := ParseRepScheme(v)
			if err != nil {
				return err
			}
			if len(reps) == 1 {
				f.Value = reps[0]
			} else {
				f.Value = reps
			}
		}
	}
	return nil
}

// ParseDuration accepts "m:ss", "h:mm:ss", a bare millisecond count or a
// Go duration string.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid clock duration %q", s)
		}
		var total int64
		for _, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid clock duration %q", s)
			}
			total = total*60 + n
		}
		return time.Duration(total) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ParseRepScheme parses "21-15-9" into its rep counts. A single number is
// a plain round count.
func ParseRepScheme(s string) ([]int64, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rep scheme %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}
