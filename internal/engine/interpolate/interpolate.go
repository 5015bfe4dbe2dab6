// internal/engine/interpolate/interpolate.go
package interpolate

import (
	"fmt"
	"regexp"
	"strings"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/common/metrics"
	"rag-engine/internal/models"
)

// Policy selects how unresolved tokens are handled.
type Policy int

const (
	// PolicyStrict fails resolution on the first unresolved token.
	PolicyStrict Policy = iota
	// PolicyLenient substitutes an empty string and records the miss.
	PolicyLenient
)

var tokenPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Parse extracts the placeholder tokens from a raw template string. The
// grammar is closed: {identifier} only; any other brace sequence stays
// literal text. Templates are parsed once at load time so resolution is a
// single pass over the recorded spans.
func Parse(modeID, raw string) *models.Template {
	matches := tokenPattern.FindAllStringSubmatchIndex(raw, -1)
	tokens := make([]models.Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, models.Token{
			Name:  raw[m[2]:m[3]],
			Start: m[0],
			End:   m[1],
		})
	}
	return &models.Template{ModeID: modeID, Raw: raw, Tokens: tokens}
}

// VerifyGrammar checks that every brace in raw belongs to a well-formed
// token. Resolution treats stray braces as literal text, so administrative
// templates are rejected up front: a typo'd token would otherwise ship
// inside every prompt unnoticed.
func VerifyGrammar(raw string) error {
	covered := make([]bool, len(raw))
	for _, span := range tokenPattern.FindAllStringIndex(raw, -1) {
		for i := span[0]; i < span[1]; i++ {
			covered[i] = true
		}
	}

	for i := 0; i < len(raw); i++ {
		if (raw[i] == '{' || raw[i] == '}') && !covered[i] {
			return fmt.Errorf("stray %q at offset %d, tokens must match {identifier}", raw[i], i)
		}
	}
	return nil
}

// Interpolator resolves parsed templates against a context mapping.
type Interpolator struct {
	policy    Policy
	separator string
	log       logger.Logger
}

func New(policy Policy, separator string, log logger.Logger) *Interpolator {
	if separator == "" {
		separator = ", "
	}
	return &Interpolator{
		policy:    policy,
		separator: separator,
		log:       log,
	}
}

// Resolve substitutes every token in one pass over the parsed list. A
// substituted value is never re-scanned for tokens.
func (i *Interpolator) Resolve(tmpl *models.Template, values map[string]models.AttrValue) (string, error) {
	if len(tmpl.Tokens) == 0 {
		return tmpl.Raw, nil
	}

	var b strings.Builder
	b.Grow(len(tmpl.Raw))

	last := 0
	for _, tok := range tmpl.Tokens {
		b.WriteString(tmpl.Raw[last:tok.Start])

		val, ok := values[tok.Name]
		if !ok {
			if i.policy == PolicyStrict {
				return "", errors.NewUnresolvedPlaceholderError(tok.Name, tmpl.ModeID)
			}
			metrics.PlaceholderMisses.WithLabelValues(tok.Name).Inc()
			i.log.Warn("placeholder unresolved, substituting empty", map[string]interface{}{
				"token":  tok.Name,
				"modeId": tmpl.ModeID,
			})
		} else {
			b.WriteString(val.Render(i.separator))
		}

		last = tok.End
	}
	b.WriteString(tmpl.Raw[last:])

	return b.String(), nil
}

// Separator reports the configured list-join separator.
func (i *Interpolator) Separator() string {
	return i.separator
}
