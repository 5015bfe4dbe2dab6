// internal/models/template.go
package models

// System tokens injected by the prompt composer at request time. Client
// attribute keys may not shadow them.
const (
	TokenQuery             = "query"
	TokenRetrievedPassages = "retrieved_passages"
	TokenGroundingRatio    = "grounding_ratio"
	TokenGenerationRatio   = "generation_ratio"
	TokenClientProfile     = "client_profile"
)

// Core tokens derived from the required client-record keys.
const (
	TokenClientID    = "client_id"
	TokenDisplayName = "display_name"
	TokenIndustry    = "industry"
	TokenMarket      = "market"
)

// ReservedTokens lists every token name the engine supplies itself.
func ReservedTokens() []string {
	return []string{
		TokenQuery, TokenRetrievedPassages, TokenGroundingRatio,
		TokenGenerationRatio, TokenClientProfile,
		TokenClientID, TokenDisplayName, TokenIndustry, TokenMarket,
	}
}

// Token is one placeholder occurrence inside a template, recorded as byte
// offsets of the "{name}" span within Raw.
type Token struct {
	Name  string
	Start int
	End   int
}

// Template is a parsed prompt template for one mode. Tokens are extracted
// once at load time; resolution never re-scans the raw text.
type Template struct {
	ModeID string
	Raw    string
	Tokens []Token
}

// TokenNames returns the distinct placeholder names in first-use order.
func (t *Template) TokenNames() []string {
	seen := make(map[string]bool, len(t.Tokens))
	out := make([]string, 0, len(t.Tokens))
	for _, tok := range t.Tokens {
		if !seen[tok.Name] {
			seen[tok.Name] = true
			out = append(out, tok.Name)
		}
	}
	return out
}
