package script

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// SchemaError is a CUE document that failed to compile or did not satisfy
// the statement schema.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE compiles a CUE statement document, unifies it with the
// #Document schema and decodes the concrete result. filename only labels
// error positions.
func LoadCUE(filename string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := def.Unify(v)
	if err := doc.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	// JSON is a YAML subset, so the concrete value goes through the same
	// decoder and normalization as a YAML document.
	out, err := doc.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return LoadYAML(out)
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	se := &SchemaError{Field: field, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}
