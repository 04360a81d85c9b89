// Package schema validates the envelope of untrusted grouped test case payloads
// before they are decoded into typed values.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed grouped_v2.schema.json
var groupedV2Schema string

const groupedV2SchemaURL = "grouped_v2.schema.json"

type Validator struct {
	groupedV2 *jsonschema.Schema
}

func New() (*Validator, error) {
	s, err := jsonschema.CompileString(groupedV2SchemaURL, groupedV2Schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", groupedV2SchemaURL, err)
	}

	return &Validator{groupedV2: s}, nil
}

// ValidateGroupedV2 checks that raw has the shape of a v2 grouped test cases value.
func (v *Validator) ValidateGroupedV2(raw []byte) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	var payload any
	if err := d.Decode(&payload); err != nil {
		return err
	}

	return v.groupedV2.Validate(payload)
}
