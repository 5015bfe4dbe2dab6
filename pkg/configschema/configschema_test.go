// pkg/configschema/configschema_test.go
package configschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownModes = []string{"pure", "export", "hybrid", "persona", "suggest", "visual", "creative"}

// ==========================
// 1. Client Records
// ==========================

func TestValidateClientRecord(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		errPart string
	}{
		{
			name: "minimal valid record",
			doc: `{
				"client_id": "alqueria",
				"display_name": "Alqueria",
				"industry": "dairy_foods",
				"market": "colombia"
			}`,
		},
		{
			name: "valid record with attributes",
			doc: `{
				"client_id": "tigo",
				"display_name": "Tigo",
				"industry": "telecommunications",
				"market": "honduras",
				"attributes": {
					"main_competitors": ["Claro", "Hondutel"],
					"brand_voice": "direct"
				}
			}`,
		},
		{
			name:    "missing industry",
			doc:     `{"client_id": "tigo", "display_name": "Tigo", "market": "honduras"}`,
			wantErr: true,
			errPart: "industry",
		},
		{
			name: "nested attribute value rejected",
			doc: `{
				"client_id": "tigo",
				"display_name": "Tigo",
				"industry": "telecommunications",
				"market": "honduras",
				"attributes": {"regions": {"north": "ok"}}
			}`,
			wantErr: true,
		},
		{
			name: "numeric attribute value rejected",
			doc: `{
				"client_id": "tigo",
				"display_name": "Tigo",
				"industry": "telecommunications",
				"market": "honduras",
				"attributes": {"founded": 1994}
			}`,
			wantErr: true,
		},
		{
			name: "mixed list rejected",
			doc: `{
				"client_id": "tigo",
				"display_name": "Tigo",
				"industry": "telecommunications",
				"market": "honduras",
				"attributes": {"main_competitors": ["Claro", 7]}
			}`,
			wantErr: true,
		},
		{
			name:    "uppercase client id rejected",
			doc:     `{"client_id": "Tigo", "display_name": "Tigo", "industry": "telco", "market": "honduras"}`,
			wantErr: true,
			errPart: "client_id",
		},
		{
			name:    "unknown top-level key rejected",
			doc:     `{"client_id": "tigo", "display_name": "Tigo", "industry": "telco", "market": "honduras", "active": true}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			doc:     `{"client_id": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClientRecord([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				if tt.errPart != "" {
					assert.Contains(t, err.Error(), tt.errPart)
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecodeClientRecord(t *testing.T) {
	doc := `{
		"client_id": "alqueria",
		"display_name": "Alqueria",
		"industry": "dairy_foods",
		"market": "colombia",
		"attributes": {"main_competitors": ["Alpina", "Colanta"]}
	}`

	record, err := DecodeClientRecord([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "alqueria", record.ClientID)
	assert.Equal(t, "dairy_foods", record.Industry)
	assert.Equal(t, "colombia", record.Market)
	assert.Contains(t, record.Attributes, "main_competitors")
}

func TestDecodeClientRecord_InvalidNotDecoded(t *testing.T) {
	record, err := DecodeClientRecord([]byte(`{"client_id": "x"}`))
	assert.Nil(t, record)
	assert.Error(t, err)
}

// ==========================
// 2. Template Sets
// ==========================

func TestValidateTemplateSet(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid set",
			doc:  `{"version": 1, "templates": {"pure": "Answer about {industry}.", "hybrid": "Blend for {market}."}}`,
		},
		{
			name: "empty template map is allowed",
			doc:  `{"templates": {}}`,
		},
		{
			name:    "unknown mode key rejected",
			doc:     `{"templates": {"interactive": "..."}}`,
			wantErr: true,
		},
		{
			name:    "empty template body rejected",
			doc:     `{"templates": {"pure": ""}}`,
			wantErr: true,
		},
		{
			name:    "templates key required",
			doc:     `{"version": 1}`,
			wantErr: true,
		},
		{
			name:    "non-string template rejected",
			doc:     `{"templates": {"pure": 12}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplateSet([]byte(tt.doc), knownModes)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecodeTemplateSet(t *testing.T) {
	doc := `{"version": 2, "templates": {"pure": "Grounded answer for {display_name}."}}`

	set, err := DecodeTemplateSet([]byte(doc), knownModes)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Version)
	assert.Equal(t, "Grounded answer for {display_name}.", set.Templates["pure"])
}
