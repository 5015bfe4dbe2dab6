// internal/models/answer.go
package models

// Flag is a quality/availability marker on a finalized answer. Flags are
// data, never errors: callers decide how to act on them.
type Flag string

const (
	FlagUngroundedClaims Flag = "ungrounded_claims_present"
	FlagDegraded         Flag = "degraded"
	FlagRetrievalFailed  Flag = "retrieval_failed"
)

// AnswerResult is the finalized outcome of one answer request.
type AnswerResult struct {
	Text           string      `json:"text"`
	GroundingScore float64     `json:"grounding_score"`
	Flags          []Flag      `json:"flags"`
	SourcesUsed    []SourceRef `json:"sources_used"`
}

func (r *AnswerResult) HasFlag(f Flag) bool {
	for _, existing := range r.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// AddFlag appends the flag if not already present.
func (r *AnswerResult) AddFlag(f Flag) {
	if !r.HasFlag(f) {
		r.Flags = append(r.Flags, f)
	}
}

// RequestContext is the ephemeral per-call state: allocated fresh at request
// entry, discarded at exit, never shared across concurrent calls.
type RequestContext struct {
	RequestID string
	ClientID  string
	ModeID    string
	Query     string
	Passages  []Passage
}
