// internal/engine/interpolate/interpolate_test.go
package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/models"
)

// ==========================
// Parse Tests
// ==========================

func TestParse_TokenGrammar(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		expectedTokens []string
	}{
		{
			name:           "no tokens",
			raw:            "plain text without placeholders",
			expectedTokens: []string{},
		},
		{
			name:           "single token",
			raw:            "industry is {industry}",
			expectedTokens: []string{"industry"},
		},
		{
			name:           "multiple tokens",
			raw:            "{display_name} operates in {market} ({industry})",
			expectedTokens: []string{"display_name", "market", "industry"},
		},
		{
			name:           "repeated token recorded per occurrence",
			raw:            "{industry} and {industry} again",
			expectedTokens: []string{"industry", "industry"},
		},
		{
			name:           "underscored identifiers",
			raw:            "{main_competitors} vs {_internal}",
			expectedTokens: []string{"main_competitors", "_internal"},
		},
		{
			name:           "brace sequences outside the grammar stay literal",
			raw:            "{not valid} {1starts_with_digit} {} { spaced }",
			expectedTokens: []string{},
		},
		{
			name:           "token adjacent to literal braces",
			raw:            "{{industry}}",
			expectedTokens: []string{"industry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := Parse("pure", tt.raw)

			require.NotNil(t, tmpl)
			assert.Equal(t, "pure", tmpl.ModeID)
			assert.Equal(t, tt.raw, tmpl.Raw)

			names := make([]string, 0, len(tmpl.Tokens))
			for _, tok := range tmpl.Tokens {
				names = append(names, tok.Name)
				assert.Equal(t, "{"+tok.Name+"}", tt.raw[tok.Start:tok.End])
			}
			assert.Equal(t, tt.expectedTokens, names)
		})
	}
}

func TestParse_TokenNamesDeduplicated(t *testing.T) {
	tmpl := Parse("hybrid", "{a} {b} {a} {c} {b}")
	assert.Equal(t, []string{"a", "b", "c"}, tmpl.TokenNames())
}

// ==========================
// Resolve Tests
// ==========================

func TestResolve_Strict_Success(t *testing.T) {
	interp := New(PolicyStrict, ", ", logger.NewTestLogger(t))

	tmpl := Parse("pure", "Client {display_name} in {market}: competitors {main_competitors}.")
	values := map[string]models.AttrValue{
		"display_name":     models.StringAttr("Alqueria"),
		"market":           models.StringAttr("colombia"),
		"main_competitors": models.ListAttr("Alpina", "Colanta"),
	}

	result, err := interp.Resolve(tmpl, values)

	require.NoError(t, err)
	assert.Equal(t, "Client Alqueria in colombia: competitors Alpina, Colanta.", result)
}

func TestResolve_Strict_MissingTokenNamesIt(t *testing.T) {
	interp := New(PolicyStrict, ", ", logger.NewTestLogger(t))

	tmpl := Parse("pure", "value: {unknown_field}")
	result, err := interp.Resolve(tmpl, map[string]models.AttrValue{
		"industry": models.StringAttr("dairy_foods"),
	})

	require.Error(t, err)
	assert.Empty(t, result)

	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeUnresolvedPlaceholder, stdErr.Code)
	assert.Contains(t, stdErr.Message, "unknown_field")
	assert.Equal(t, "unknown_field", stdErr.Metadata["token"])
	assert.False(t, stdErr.Retryable)
}

func TestResolve_Lenient_SubstitutesEmpty(t *testing.T) {
	interp := New(PolicyLenient, ", ", logger.NewTestLogger(t))

	tmpl := Parse("creative", "known={industry} missing={unknown_field} end")
	result, err := interp.Resolve(tmpl, map[string]models.AttrValue{
		"industry": models.StringAttr("telecommunications"),
	})

	require.NoError(t, err)
	assert.Equal(t, "known=telecommunications missing= end", result)
}

func TestResolve_CustomSeparator(t *testing.T) {
	tests := []struct {
		name      string
		separator string
		expected  string
	}{
		{name: "default comma space", separator: ", ", expected: "Alpina, Colanta"},
		{name: "pipe", separator: " | ", expected: "Alpina | Colanta"},
		{name: "newline", separator: "\n", expected: "Alpina\nColanta"},
		{name: "empty falls back to default", separator: "", expected: "Alpina, Colanta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp := New(PolicyStrict, tt.separator, logger.NewTestLogger(t))

			tmpl := Parse("pure", "{main_competitors}")
			result, err := interp.Resolve(tmpl, map[string]models.AttrValue{
				"main_competitors": models.ListAttr("Alpina", "Colanta"),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolve_NoRecursiveSubstitution(t *testing.T) {
	interp := New(PolicyStrict, ", ", logger.NewTestLogger(t))

	// A substituted value containing a token-shaped string must not be
	// expanded again.
	tmpl := Parse("pure", "positioning: {brand_positioning}")
	result, err := interp.Resolve(tmpl, map[string]models.AttrValue{
		"brand_positioning": models.StringAttr("always {industry} first"),
		"industry":          models.StringAttr("SHOULD_NOT_APPEAR"),
	})

	require.NoError(t, err)
	assert.Equal(t, "positioning: always {industry} first", result)
	assert.NotContains(t, result, "SHOULD_NOT_APPEAR")
}

func TestResolve_NoTokensReturnsRaw(t *testing.T) {
	interp := New(PolicyStrict, ", ", logger.NewTestLogger(t))

	tmpl := Parse("pure", "static prompt text")
	result, err := interp.Resolve(tmpl, nil)

	require.NoError(t, err)
	assert.Equal(t, "static prompt text", result)
}

func TestResolve_Deterministic(t *testing.T) {
	interp := New(PolicyStrict, ", ", logger.NewTestLogger(t))

	tmpl := Parse("hybrid", "{display_name} / {segments} / {display_name}")
	values := map[string]models.AttrValue{
		"display_name": models.StringAttr("Tigo"),
		"segments":     models.ListAttr("prepaid", "postpaid", "home"),
	}

	first, err := interp.Resolve(tmpl, values)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := interp.Resolve(tmpl, values)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// ==========================
// Grammar Verification
// ==========================

func TestVerifyGrammar(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain text", "no braces at all", false},
		{"well-formed tokens", "answer about {industry} in {market}", false},
		{"adjacent tokens", "{grounding_ratio}{generation_ratio}", false},
		{"unclosed brace", "answer about {industry", true},
		{"stray closing brace", "ratio} is high", true},
		{"space inside token", "{main competitors}", true},
		{"doubled braces", "{{industry}}", true},
		{"empty braces", "{}", true},
		{"leading digit", "{1st_quarter}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyGrammar(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkResolve(b *testing.B) {
	interp := New(PolicyStrict, ", ", logger.NewNoOpLogger())

	tmpl := Parse("hybrid", "You advise {display_name}, a {industry} company in {market}. Key competitors: {main_competitors}. Segments: {segments}.")
	values := map[string]models.AttrValue{
		"display_name":     models.StringAttr("Tigo"),
		"industry":         models.StringAttr("telecommunications"),
		"market":           models.StringAttr("honduras"),
		"main_competitors": models.ListAttr("Claro"),
		"segments":         models.ListAttr("prepaid", "postpaid", "home"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := interp.Resolve(tmpl, values); err != nil {
			b.Fatal(err)
		}
	}
}
