package ocr

import (
	"testing"

	"golang.org/x/text/unicode/norm"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

func TestSimilarity_Identity(t *testing.T) {
	texts := []string{"", "abc", "등기사항전부증명서", "line one\nline two"}
	for _, text := range texts {
		if got := Similarity(text, text); got != 1.0 {
			t.Errorf("Similarity(%q, same): expected 1.0, got %v", text, got)
		}
	}
}

func TestSimilarity_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"abcdefghij", "abcdefghix"},
		{"근저당권설정 채권최고액", "근저당권 채권최고액"},
		{"", "something"},
		{"short", "a much longer text entirely"},
	}
	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q,%q)=%v but reversed=%v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Expected 1.0 for two empty texts, got %v", got)
	}
	if got := Similarity("abc", ""); got != 0.0 {
		t.Errorf("Expected 0.0 against empty text, got %v", got)
	}
}

func TestSimilarity_NormalizesBeforeComparing(t *testing.T) {
	// Case and whitespace differences are not OCR disagreements.
	if got := Similarity("Hello   World", "hello world"); got != 1.0 {
		t.Errorf("Expected 1.0 after normalization, got %v", got)
	}

	// Engines disagree on Hangul jamo composition; NFC unifies them.
	composed := "서울특별시 종로구"
	decomposed := norm.NFD.String(composed)
	if decomposed == composed {
		t.Fatal("test setup: NFD form should differ from NFC form")
	}
	if got := Similarity(composed, decomposed); got != 1.0 {
		t.Errorf("Expected 1.0 across composition forms, got %v", got)
	}
}

func TestReconcile_TierBoundaries(t *testing.T) {
	// 1 edit in 10 chars = exactly 0.9, the high boundary.
	high := Reconcile("swift", "thorough", "abcdefghij", "abcdefghix")
	if high.Similarity != 0.9 {
		t.Fatalf("Expected similarity 0.9, got %v", high.Similarity)
	}
	if high.Tier != model.TierHigh {
		t.Errorf("Expected high tier at 0.9, got %s", high.Tier)
	}

	// 3 edits in 10 chars = exactly 0.7, the medium boundary.
	medium := Reconcile("swift", "thorough", "abcdefghij", "abcdefgxyz")
	if medium.Similarity != 0.7 {
		t.Fatalf("Expected similarity 0.7, got %v", medium.Similarity)
	}
	if medium.Tier != model.TierMedium {
		t.Errorf("Expected medium tier at 0.7, got %s", medium.Tier)
	}
}

func TestReconcile_HighTierTakesEngineA(t *testing.T) {
	got := Reconcile("swift", "thorough", "the registry text", "the registry text")

	if got.Tier != model.TierHigh {
		t.Fatalf("Expected high tier, got %s", got.Tier)
	}
	if got.Text != "the registry text" {
		t.Errorf("Expected engine A text, got %q", got.Text)
	}
	if got.NeedsReview {
		t.Error("High tier must not need review")
	}
}

func TestReconcile_MediumTierTakesLongerText(t *testing.T) {
	textA := "abcdefghij"
	textB := "abcdefghijxx" // 2 insertions in 12: similarity 0.833

	got := Reconcile("swift", "thorough", textA, textB)
	if got.Tier != model.TierMedium {
		t.Fatalf("Expected medium tier, got %s (similarity %v)", got.Tier, got.Similarity)
	}
	if got.Text != textB {
		t.Errorf("Expected longer engine B text, got %q", got.Text)
	}

	// Same lengths fall back to engine A.
	same := Reconcile("swift", "thorough", "abcdefghij", "abcdefghxy")
	if same.Tier != model.TierMedium {
		t.Fatalf("Expected medium tier, got %s", same.Tier)
	}
	if same.Text != "abcdefghij" {
		t.Errorf("Expected engine A text on equal length, got %q", same.Text)
	}
}

func TestReconcile_LowTierFlagsReview(t *testing.T) {
	got := Reconcile("swift", "thorough", "abcdefghij", "zzzzzzzzzz")

	if got.Tier != model.TierLow {
		t.Fatalf("Expected low tier, got %s", got.Tier)
	}
	if !got.NeedsReview {
		t.Error("Low tier must set the review flag")
	}
	if got.Text != "abcdefghij" {
		t.Errorf("Expected engine A text, got %q", got.Text)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"같은글자", "같은글자", 0},
		{"근저당권", "근저당", 1},
	}
	for _, tc := range cases {
		if got := levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Errorf("levenshtein(%q,%q): expected %d, got %d", tc.a, tc.b, tc.want, got)
		}
	}
}
