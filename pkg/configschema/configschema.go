// pkg/configschema/configschema.go
package configschema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateClientRecord checks one raw client record against the schema.
func ValidateClientRecord(doc []byte) error {
	return validate(ClientRecordSchema(), doc)
}

// ValidateTemplateSet checks a raw template-set document against the schema
// for the given mode ids.
func ValidateTemplateSet(doc []byte, modeIDs []string) error {
	return validate(TemplateSetSchema(modeIDs), doc)
}

// DecodeClientRecord validates and unmarshals one client record.
func DecodeClientRecord(doc []byte) (*ClientRecordDoc, error) {
	if err := ValidateClientRecord(doc); err != nil {
		return nil, err
	}

	var record ClientRecordDoc
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("decode client record: %w", err)
	}
	return &record, nil
}

// DecodeTemplateSet validates and unmarshals a template-set document.
func DecodeTemplateSet(doc []byte, modeIDs []string) (*TemplateSetDoc, error) {
	if err := ValidateTemplateSet(doc, modeIDs); err != nil {
		return nil, err
	}

	var set TemplateSetDoc
	if err := json.Unmarshal(doc, &set); err != nil {
		return nil, fmt.Errorf("decode template set: %w", err)
	}
	return &set, nil
}

func validate(schemaMap map[string]interface{}, doc []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("document validation failed: %v", errs)
	}

	return nil
}
