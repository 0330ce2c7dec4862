// Package validator checks fact tables and check output against embedded CUE
// contracts before they leave the process. A field renamed in Go without
// the schema following fails here instead of silently disabling a rule.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed facts_schema.cue output_schema.cue
var schemaFS embed.FS

// schemaValidator unifies JSON data with one definition of a compiled schema.
type schemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
	def    string
	label  string
}

func newSchemaValidator(file, def, label string) (*schemaValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s schema: %w", label, err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", label, schema.Err())
	}

	return &schemaValidator{ctx: ctx, schema: schema, def: def, label: label}, nil
}

func (v *schemaValidator) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling %s as CUE: %w", v.label, dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(v.def))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", v.def, def.Err())
	}

	return def.Unify(dataValue), nil
}

// ValidateJSON validates JSON bytes directly against the schema.
func (v *schemaValidator) ValidateJSON(jsonBytes []byte) error {
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", v.label, err)
	}
	return nil
}

// Validate marshals data to JSON and validates it.
func (v *schemaValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s to JSON: %w", v.label, err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidationErrors returns one message per CUE error, or nil when data is valid.
func (v *schemaValidator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := v.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}

	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// FactsValidator validates relational fact tables against #FactTables.
type FactsValidator struct {
	*schemaValidator
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	v, err := newSchemaValidator("facts_schema.cue", "#FactTables", "facts")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{v}, nil
}

// OutputValidator validates check output against #CheckOutput.
type OutputValidator struct {
	*schemaValidator
}

// NewOutputValidator creates a validator for check output.
func NewOutputValidator() (*OutputValidator, error) {
	v, err := newSchemaValidator("output_schema.cue", "#CheckOutput", "output")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{v}, nil
}
