// internal/models/passage.go
package models

// Passage is one ranked retrieval result.
type Passage struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SourceTitle returns the document title from metadata, if present.
func (p Passage) SourceTitle() string {
	if title, ok := p.Metadata["document"]; ok && title != "" {
		return title
	}
	return "untitled source"
}

// SourceRef is one attribution entry on a finalized answer.
type SourceRef struct {
	Title    string            `json:"title"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
