// internal/models/mode.go
package models

// CreativityLevel orders how much free generation a mode permits.
type CreativityLevel string

const (
	CreativityMinimal CreativityLevel = "minimal"
	CreativityMedium  CreativityLevel = "medium"
	CreativityHigh    CreativityLevel = "high"
)

// Temperature maps the ordinal level to a completion sampling temperature.
func (l CreativityLevel) Temperature() float64 {
	switch l {
	case CreativityMinimal:
		return 0.1
	case CreativityHigh:
		return 0.9
	default:
		return 0.5
	}
}

// OutputKind is one presentation form an answer may take.
type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputTable OutputKind = "table"
	OutputChart OutputKind = "chart"
)

// ModeSpec is one named point on the grounding/creativity spectrum.
// GroundingRatio is the integer percentage of the answer that must be
// directly attributable to retrieved passages.
type ModeSpec struct {
	ModeID         string
	GroundingRatio int
	Creativity     CreativityLevel
	AllowedOutputs []OutputKind
}

func (m ModeSpec) AllowsOutput(kind OutputKind) bool {
	for _, k := range m.AllowedOutputs {
		if k == kind {
			return true
		}
	}
	return false
}

// ModeOverrides carries per-request mode adjustments. Only hybrid accepts a
// grounding-ratio override.
type ModeOverrides struct {
	GroundingRatio *int `json:"grounding_ratio,omitempty"`
}
