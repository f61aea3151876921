package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Tier boundaries. Both are inclusive on the lower edge.
const (
	tierHighMin   = 0.9
	tierMediumMin = 0.7
)

// Reconcile merges two engine outputs into one trusted text. It is a
// pure function of the inputs and never touches the network.
//
// Texts agreeing at or above 0.9 similarity take engine A's output
// (the cheap engine is authoritative once both agree). Between 0.7 and
// 0.9 the longer text wins on the theory that it extracted more. Below
// 0.7 engine A's text is kept and the result is flagged for review.
func Reconcile(engineA, engineB, textA, textB string) model.OcrConsensusResult {
	similarity := Similarity(textA, textB)

	result := model.OcrConsensusResult{
		EngineA:    engineA,
		EngineB:    engineB,
		TextA:      textA,
		TextB:      textB,
		Similarity: similarity,
	}

	switch {
	case similarity >= tierHighMin:
		result.Tier = model.TierHigh
		result.Text = textA
	case similarity >= tierMediumMin:
		result.Tier = model.TierMedium
		result.Text = textA
		if len([]rune(textB)) > len([]rune(textA)) {
			result.Text = textB
		}
	default:
		result.Tier = model.TierLow
		result.Text = textA
		result.NeedsReview = true
	}

	return result
}

// Similarity computes a character-level similarity ratio in [0,1]
// between the two texts after normalization. It is symmetric and
// returns 1.0 for identical inputs.
func Similarity(a, b string) float64 {
	ra := []rune(normalize(a))
	rb := []rune(normalize(b))

	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// normalize prepares text for comparison: NFC composition (engines
// disagree on Hangul jamo composition), whitespace collapsed to single
// spaces, lowercased.
func normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
