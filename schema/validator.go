// Package schema validates externally supplied listing payloads against the
// embedded JSON Schema before they enter the pipeline.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed listing.schema.json
var listingSchema []byte

// Validator checks raw listing documents against the listing schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("listing.schema.json", bytes.NewReader(listingSchema)); err != nil {
		return nil, fmt.Errorf("add listing schema resource: %w", err)
	}

	compiled, err := compiler.Compile("listing.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile listing schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// ValidateBytes validates a raw JSON document.
func (v *Validator) ValidateBytes(data []byte) error {
	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("decode listing document: %w", err)
	}
	return v.Validate(document)
}

// Validate validates an already-decoded document.
func (v *Validator) Validate(document any) error {
	if err := v.schema.Validate(document); err != nil {
		return fmt.Errorf("listing document invalid: %w", err)
	}
	return nil
}
