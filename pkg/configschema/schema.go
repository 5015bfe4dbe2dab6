// pkg/configschema/schema.go
package configschema

// TemplateSetDoc is the wire shape of an administrative template set: one
// prompt template per mode id.
type TemplateSetDoc struct {
	Version   int               `json:"version,omitempty"`
	Templates map[string]string `json:"templates"`
}

// ClientRecordDoc is the wire shape of one client configuration record.
// Attributes stays untyped here; the engine converts the values after
// validation.
type ClientRecordDoc struct {
	ClientID    string                 `json:"client_id"`
	DisplayName string                 `json:"display_name"`
	Industry    string                 `json:"industry"`
	Market      string                 `json:"market"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// ClientRecordSchema returns the JSON schema for a single client record.
// Attribute values are strings or lists of strings, nothing nested.
func ClientRecordSchema() map[string]interface{} {
	attrValue := map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "string"},
			map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []string{"client_id", "display_name", "industry", "market"},
		"properties": map[string]interface{}{
			"client_id": map[string]interface{}{
				"type":    "string",
				"pattern": "^[a-z0-9][a-z0-9_-]*$",
			},
			"display_name": map[string]interface{}{"type": "string", "minLength": 1},
			"industry":     map[string]interface{}{"type": "string", "minLength": 1},
			"market":       map[string]interface{}{"type": "string", "minLength": 1},
			"attributes": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": attrValue,
			},
		},
		"additionalProperties": false,
	}
}

// TemplateSetSchema returns the JSON schema for a template-set document.
// Template keys are restricted to the given mode ids, so a typo'd or
// retired mode is rejected at load time instead of sitting unused.
func TemplateSetSchema(modeIDs []string) map[string]interface{} {
	templateProps := make(map[string]interface{}, len(modeIDs))
	for _, id := range modeIDs {
		templateProps[id] = map[string]interface{}{"type": "string", "minLength": 1}
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []string{"templates"},
		"properties": map[string]interface{}{
			"version": map[string]interface{}{"type": "integer", "minimum": 1},
			"templates": map[string]interface{}{
				"type":                 "object",
				"properties":           templateProps,
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}
}
