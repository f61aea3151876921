// Package quality decides whether an artifact's text layer is good
// enough to trust directly or whether the case must go through OCR.
package quality

import (
	"strings"

	"github.com/hyeonwoo-dev/jipcheck/internal/document"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Check weights. Each satisfied check contributes its full weight.
const (
	weightHasText   = 0.3
	weightHasHangul = 0.3
	weightLength    = 0.2
	weightDensity   = 0.2

	minTotalChars   = 200
	minCharsPerPage = 100
)

// Router scores an artifact's extractable text and picks the
// extraction method.
type Router struct {
	threshold float64
}

// NewRouter creates a Router with the given direct-extraction
// threshold. Scores below it route to OCR.
func NewRouter(threshold float64) *Router {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &Router{threshold: threshold}
}

// Assess scores the document's text layer. A nil document (artifact
// could not be opened) routes to OCR with score zero. Assess never
// fails: the worst outcome is the OCR route.
func (r *Router) Assess(doc *document.SourceDocument) model.QualityAssessment {
	if doc == nil {
		return model.QualityAssessment{
			Score:  0.0,
			Method: model.ExtractOCR,
		}
	}

	charCount := doc.CharCount()
	pageCount := doc.PageCount()

	checks := model.QualityChecks{
		HasText:   charCount > 0,
		HasHangul: containsHangul(doc.Text()),
		LengthOK:  charCount >= minTotalChars,
	}
	if pageCount > 0 {
		checks.DensityOK = charCount/pageCount >= minCharsPerPage
	}

	score := 0.0
	if checks.HasText {
		score += weightHasText
	}
	if checks.HasHangul {
		score += weightHasHangul
	}
	if checks.LengthOK {
		score += weightLength
	}
	if checks.DensityOK {
		score += weightDensity
	}

	method := model.ExtractOCR
	if score >= r.threshold {
		method = model.ExtractDirect
	}

	return model.QualityAssessment{
		Score:     score,
		Method:    method,
		PageCount: pageCount,
		CharCount: charCount,
		Checks:    checks,
	}
}

// containsHangul reports whether any rune falls in the Hangul
// syllable block (U+AC00..U+D7A3).
func containsHangul(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool {
		return r >= 0xAC00 && r <= 0xD7A3
	})
}
