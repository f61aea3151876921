package model

import "time"

// ExtractionMethod is the strategy the quality router selected.
type ExtractionMethod string

const (
	ExtractDirect ExtractionMethod = "direct" // document text layer is trustworthy
	ExtractOCR    ExtractionMethod = "ocr"    // scan-quality, run the OCR engines
)

// QualityAssessment grades how machine-readable a source document is.
// Derived per run and never persisted.
type QualityAssessment struct {
	Score     float64          `json:"score"` // 0.0–1.0
	Method    ExtractionMethod `json:"method"`
	PageCount int              `json:"page_count"`
	CharCount int              `json:"char_count"`
	Checks    QualityChecks    `json:"checks"`
}

// QualityChecks records which weighted checks passed.
type QualityChecks struct {
	HasText   bool `json:"has_text"`   // weight 0.3
	HasHangul bool `json:"has_hangul"` // weight 0.3
	LengthOK  bool `json:"length_ok"`  // total chars >= 200, weight 0.2
	DensityOK bool `json:"density_ok"` // chars per page >= 100, weight 0.2
}

// ConfidenceTier grades the agreement between the two OCR engines.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"   // similarity >= 0.9
	TierMedium ConfidenceTier = "medium" // 0.7 <= similarity < 0.9
	TierLow    ConfidenceTier = "low"    // similarity < 0.7, flagged for review
)

// OcrConsensusResult is the reconciled output of the dual-engine OCR run.
// Produced only on the OCR path, never persisted.
type OcrConsensusResult struct {
	EngineA      string         `json:"engine_a"`
	EngineB      string         `json:"engine_b"`
	TextA        string         `json:"-"` // raw engine output, kept for diagnostics
	TextB        string         `json:"-"`
	Similarity   float64        `json:"similarity"` // 0.0–1.0
	Text         string         `json:"-"`          // reconciled text handed to the parser
	Tier         ConfidenceTier `json:"tier"`
	NeedsReview  bool           `json:"needs_review"`
	PageFailures int            `json:"page_failures"` // pages where at least one engine failed
}

// Stage names the orchestrator's state machine positions.
type Stage string

const (
	StageCaseLoaded        Stage = "CaseLoaded"
	StageRegistryParsed    Stage = "RegistryParsed"
	StageRegistryAbsent    Stage = "RegistryAbsent"
	StageMarketResolved    Stage = "MarketResolved"
	StageMarketAbsent      Stage = "MarketAbsent"
	StageScored            Stage = "Scored"
	StageFeaturesExtracted Stage = "FeaturesExtracted"
	StagePromptBuilt       Stage = "PromptBuilt"
	StageDone              Stage = "Done"
)

// StageTransition is one recorded step of a run, for the audit trail.
type StageTransition struct {
	Stage Stage     `json:"stage"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"` // degradation reason on Absent branches
}

// AnalysisContext is the orchestrator's final aggregate for one run. It is
// assembled once, immutable afterwards, and owned by the caller that
// requested it. Done is the only state in which a context leaves the
// orchestrator.
type AnalysisContext struct {
	RunID      string              `json:"run_id"`
	Case       Case                `json:"case"`
	Quality    *QualityAssessment  `json:"quality,omitempty"`
	Consensus  *OcrConsensusResult `json:"consensus,omitempty"`
	Registry   *RegistryDocument   `json:"-"`                  // unmasked: scoring only, never serialized for display
	Masked     *MaskedRegistry     `json:"registry,omitempty"` // display-safe view
	Market     *MarketSnapshot     `json:"market,omitempty"`
	Score      RiskScore           `json:"score"`
	Features   RiskFeatures        `json:"features"`
	Prompt     string              `json:"prompt"`
	Partial    bool                `json:"partial"`
	Trace      []StageTransition   `json:"trace"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}
