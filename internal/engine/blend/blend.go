// internal/engine/blend/blend.go
package blend

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"rag-engine/internal/models"
)

var sentenceBoundary = regexp.MustCompile(`[.!?\n]+`)

// Blender scores a generated answer against the passages it was supposed to
// be grounded in. It reports quality through flags and never fails a
// request; retry and surface policy stay with the caller.
type Blender struct {
	floor float64
}

// New builds a blender with the given similarity floor. A sentence counts as
// grounded when its best passage overlap reaches the floor.
func New(floor float64) *Blender {
	return &Blender{floor: floor}
}

// Finalize computes the grounding score for the answer: the fraction of
// scoreable sentences with a matching passage at or above the floor.
// Sentences without content words make no claim and are skipped. A failing
// sentence raises the ungrounded flag; under full grounding the result is
// additionally marked degraded.
func (b *Blender) Finalize(generated string, passages []models.Passage, spec models.ModeSpec) *models.AnswerResult {
	passageWords := make([]map[string]bool, 0, len(passages))
	for _, p := range passages {
		passageWords = append(passageWords, contentWords(p.Content))
	}

	scoreable := 0
	grounded := 0
	ungrounded := false
	for _, sentence := range SplitSentences(generated) {
		words := contentWords(sentence)
		if len(words) == 0 {
			continue
		}
		scoreable++
		if bestOverlap(words, passageWords) >= b.floor {
			grounded++
		} else {
			ungrounded = true
		}
	}

	result := &models.AnswerResult{Text: generated}
	if scoreable > 0 {
		result.GroundingScore = float64(grounded) / float64(scoreable)
	}

	if ungrounded {
		result.AddFlag(models.FlagUngroundedClaims)
		if spec.GroundingRatio == 100 {
			result.AddFlag(models.FlagDegraded)
		}
	}
	return result
}

// SplitSentences breaks text on terminal punctuation. Newlines close a
// sentence too, so bulleted output is scored line by line.
func SplitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Similarity is the normalized content-word overlap of a sentence against a
// passage: the fraction of the sentence's distinct content words the passage
// contains.
func Similarity(sentence, passage string) float64 {
	return overlap(contentWords(sentence), contentWords(passage))
}

func bestOverlap(sentence map[string]bool, passages []map[string]bool) float64 {
	best := 0.0
	for _, passage := range passages {
		if score := overlap(sentence, passage); score > best {
			best = score
		}
	}
	return best
}

func overlap(sentence, passage map[string]bool) float64 {
	if len(sentence) == 0 {
		return 0
	}
	matched := 0
	for word := range sentence {
		if passage[word] {
			matched++
		}
	}
	return float64(matched) / float64(len(sentence))
}

// contentWords lowercases, strips punctuation, and keeps distinct words of
// three or more runes.
func contentWords(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := make(map[string]bool, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) >= 3 {
			words[field] = true
		}
	}
	return words
}
