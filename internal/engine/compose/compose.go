// internal/engine/compose/compose.go
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/engine/interpolate"
	"rag-engine/internal/models"
)

// NoPassagesMarker is substituted for {retrieved_passages} when retrieval
// produced nothing, so the model sees an explicit statement instead of a
// silent gap.
const NoPassagesMarker = "No supporting passages were retrieved."

// Composer builds the final prompt for a request. It is a pure function of
// its inputs: identical client, mode, query, and passages always produce an
// identical prompt.
type Composer struct {
	templates map[string]*models.Template
	interp    *interpolate.Interpolator
}

func New(templates map[string]*models.Template, interp *interpolate.Interpolator) *Composer {
	return &Composer{templates: templates, interp: interp}
}

// Compose resolves the mode's base template against the client context and
// the system tokens, then appends the grounding directive for the mode's
// effective ratio.
func (c *Composer) Compose(client *models.ClientContext, spec models.ModeSpec, query string, passages []models.Passage) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.NewEmptyQueryError()
	}

	tmpl, ok := c.templates[spec.ModeID]
	if !ok {
		return "", errors.NewModeNotFoundError(spec.ModeID)
	}

	values := client.TokenValues()
	values[models.TokenQuery] = models.StringAttr(query)
	values[models.TokenRetrievedPassages] = models.StringAttr(PassageBlock(passages))
	values[models.TokenGroundingRatio] = models.StringAttr(strconv.Itoa(spec.GroundingRatio))
	values[models.TokenGenerationRatio] = models.StringAttr(strconv.Itoa(100 - spec.GroundingRatio))
	values[models.TokenClientProfile] = models.StringAttr(client.ProfileBlock(c.interp.Separator()))

	body, err := c.interp.Resolve(tmpl, values)
	if err != nil {
		return "", err
	}

	return body + "\n\n" + GroundingDirective(spec.GroundingRatio), nil
}

// PassageBlock renders passages as an enumerated, source-attributed block.
func PassageBlock(passages []models.Passage) string {
	if len(passages) == 0 {
		return NoPassagesMarker
	}

	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("[Source %d: %s] %s", i+1, sourceLabel(p), strings.TrimSpace(p.Content)))
	}
	return b.String()
}

func sourceLabel(p models.Passage) string {
	title := p.SourceTitle()
	if year := p.Metadata["year"]; year != "" {
		return fmt.Sprintf("%s (%s)", title, year)
	}
	return title
}

// GroundingDirective returns the instruction tier for a grounding ratio:
// full grounding forbids unsourced claims, the middle band requires labeling
// them, anything below 50 opens generation up.
func GroundingDirective(ratio int) string {
	switch {
	case ratio >= 100:
		return "Grounding directive: answer exclusively from the retrieved passages. " +
			"Every claim must be traceable to one of them; if they do not contain " +
			"the answer, state that the evidence is insufficient."
	case ratio >= 50:
		return "Grounding directive: prefer the retrieved passages. General domain " +
			"reasoning is permitted, but mark every statement not supported by a " +
			"passage as (inference)."
	default:
		return "Grounding directive: open generation is permitted. Treat the " +
			"retrieved passages as optional inspiration rather than constraints."
	}
}
