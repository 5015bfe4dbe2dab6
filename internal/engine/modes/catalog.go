// internal/engine/modes/catalog.go
package modes

import (
	"fmt"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/models"
)

// Mode identifiers.
const (
	ModePure     = "pure"
	ModeExport   = "export"
	ModeHybrid   = "hybrid"
	ModePersona  = "persona"
	ModeSuggest  = "suggest"
	ModeVisual   = "visual"
	ModeCreative = "creative"
)

// Preset names. A preset selects hybrid's default grounding ratio; the
// fixed modes never move.
const (
	PresetConservative = "conservative"
	PresetBalanced     = "balanced"
	PresetCreative     = "creative"
)

var presetHybridDefaults = map[string]int{
	PresetConservative: 85,
	PresetBalanced:     70,
	PresetCreative:     50,
}

// Catalog is the fixed set of response modes. Populated once at startup and
// read-only afterwards.
type Catalog struct {
	order []string
	specs map[string]models.ModeSpec
}

// NewCatalog builds the catalog with hybrid's default ratio taken from the
// preset. Internal consistency (ratio 100 implies minimal creativity,
// ratios within [0, 100]) is enforced here, not per request.
func NewCatalog(preset string) (*Catalog, error) {
	hybridDefault, ok := presetHybridDefaults[preset]
	if !ok {
		return nil, errors.NewConfigLoadError("mode catalog", fmt.Errorf("unknown preset %q", preset))
	}

	specs := []models.ModeSpec{
		{ModeID: ModePure, GroundingRatio: 100, Creativity: models.CreativityMinimal,
			AllowedOutputs: []models.OutputKind{models.OutputText}},
		{ModeID: ModeExport, GroundingRatio: 100, Creativity: models.CreativityMinimal,
			AllowedOutputs: []models.OutputKind{models.OutputText, models.OutputTable}},
		{ModeID: ModeHybrid, GroundingRatio: hybridDefault, Creativity: hybridCreativity(hybridDefault),
			AllowedOutputs: []models.OutputKind{models.OutputText, models.OutputTable}},
		{ModeID: ModePersona, GroundingRatio: 70, Creativity: models.CreativityMedium,
			AllowedOutputs: []models.OutputKind{models.OutputText}},
		{ModeID: ModeSuggest, GroundingRatio: 70, Creativity: models.CreativityHigh,
			AllowedOutputs: []models.OutputKind{models.OutputText}},
		{ModeID: ModeVisual, GroundingRatio: 60, Creativity: models.CreativityMedium,
			AllowedOutputs: []models.OutputKind{models.OutputText, models.OutputChart}},
		{ModeID: ModeCreative, GroundingRatio: 60, Creativity: models.CreativityHigh,
			AllowedOutputs: []models.OutputKind{models.OutputText, models.OutputChart}},
	}

	c := &Catalog{
		order: make([]string, 0, len(specs)),
		specs: make(map[string]models.ModeSpec, len(specs)),
	}
	for _, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return nil, errors.NewConfigLoadError("mode catalog", err)
		}
		c.order = append(c.order, spec.ModeID)
		c.specs[spec.ModeID] = spec
	}

	return c, nil
}

func validateSpec(spec models.ModeSpec) error {
	if spec.GroundingRatio < 0 || spec.GroundingRatio > 100 {
		return fmt.Errorf("mode %s: grounding ratio %d outside [0, 100]", spec.ModeID, spec.GroundingRatio)
	}
	if spec.GroundingRatio == 100 && spec.Creativity != models.CreativityMinimal {
		return fmt.Errorf("mode %s: grounding ratio 100 requires minimal creativity", spec.ModeID)
	}
	if len(spec.AllowedOutputs) == 0 {
		return fmt.Errorf("mode %s: no allowed outputs", spec.ModeID)
	}
	return nil
}

// Get returns the spec for a mode id.
func (c *Catalog) Get(modeID string) (models.ModeSpec, error) {
	spec, ok := c.specs[modeID]
	if !ok {
		return models.ModeSpec{}, errors.NewModeNotFoundError(modeID)
	}
	return spec, nil
}

// List returns the specs in catalog order.
func (c *Catalog) List() []models.ModeSpec {
	out := make([]models.ModeSpec, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.specs[id])
	}
	return out
}

// Resolve returns the effective spec for a request. Hybrid is the only mode
// accepting a grounding-ratio override; the override is bounded [0, 100]
// inclusive and re-derives creativity.
func (c *Catalog) Resolve(modeID string, overrides *models.ModeOverrides) (models.ModeSpec, error) {
	spec, err := c.Get(modeID)
	if err != nil {
		return models.ModeSpec{}, err
	}

	if overrides == nil || overrides.GroundingRatio == nil {
		return spec, nil
	}

	if modeID != ModeHybrid {
		return models.ModeSpec{}, errors.NewInvalidModeOverrideError(modeID,
			"grounding_ratio is only overridable for hybrid")
	}

	ratio := *overrides.GroundingRatio
	if ratio < 0 || ratio > 100 {
		return models.ModeSpec{}, errors.NewInvalidModeOverrideError(modeID,
			fmt.Sprintf("grounding_ratio %d outside [0, 100]", ratio))
	}

	spec.GroundingRatio = ratio
	spec.Creativity = hybridCreativity(ratio)
	return spec, nil
}

// hybridCreativity derives the creativity level from hybrid's effective
// ratio: heavily grounded runs stay literal, lightly grounded runs open up.
func hybridCreativity(ratio int) models.CreativityLevel {
	switch {
	case ratio >= 90:
		return models.CreativityMinimal
	case ratio >= 60:
		return models.CreativityMedium
	default:
		return models.CreativityHigh
	}
}
