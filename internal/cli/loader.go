package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/wodrun/internal/compiler"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/script"
)

// LoadResult is a loaded statement document ready to compile.
type LoadResult struct {
	Name   string
	Raw    *ir.Script // as written
	Script *ir.Script // after the hint analyzers
}

// LoadError represents an error that occurred while loading a script.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadScript reads a statement document and annotates it. raw skips the
// analyzers (Script is then the same as Raw).
func LoadScript(path string, raw bool) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("script not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing script: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	doc, err := script.Load(path)
	if err != nil {
		return nil, toLoadError(err)
	}

	result := &LoadResult{Name: doc.Name, Raw: doc.Script, Script: doc.Script}
	if !raw {
		result.Script = compiler.Annotate(doc.Script)
	}
	return result, nil
}

// toLoadError classifies a script.Load failure.
func toLoadError(err error) *LoadError {
	var schemaErr *script.SchemaError
	if errors.As(err, &schemaErr) {
		return &LoadError{
			Code:    ErrCodeSchema,
			Message: fmt.Sprintf("%s: %s", schemaErr.Field, schemaErr.Message),
			Pos:     schemaErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands. Script
// validation codes (E100-E106) come from compiler.Validate.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Script could not be read or decoded
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeSchema      = "E006" // CUE document violates the statement schema
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // History database error
)
