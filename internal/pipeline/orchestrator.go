// Package pipeline sequences one case's analysis: quality routing, OCR
// consensus, registry structuring, market aggregation, scoring and prompt
// assembly. Optional stages degrade to an Absent branch instead of failing
// the run; only a missing case is fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyeonwoo-dev/jipcheck/internal/audit"
	"github.com/hyeonwoo-dev/jipcheck/internal/document"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
	"github.com/hyeonwoo-dev/jipcheck/internal/quality"
	"github.com/hyeonwoo-dev/jipcheck/internal/registry"
	"github.com/hyeonwoo-dev/jipcheck/internal/score"
)

// External collaborators, specified at their interfaces only.
type (
	// CaseStore reads cases. The core never writes them.
	CaseStore interface {
		GetCase(ctx context.Context, id string) (*model.Case, error)
	}

	// ArtifactStore locates the registry document for a case. A (nil, nil)
	// return means the case has no artifact, which is a valid path.
	ArtifactStore interface {
		GetArtifact(ctx context.Context, caseID string) (*model.SourceArtifact, error)
	}

	// ConsensusRunner runs the dual-engine OCR pass.
	ConsensusRunner interface {
		Run(ctx context.Context, caseID string, doc *document.SourceDocument) (*model.OcrConsensusResult, error)
	}

	// RegionResolver maps an address to an administrative region.
	RegionResolver interface {
		Resolve(ctx context.Context, address string) (model.Region, error)
	}

	// Snapshotter aggregates comparable transactions for a region.
	Snapshotter interface {
		Snapshot(ctx context.Context, caseID string, region model.Region, contractType model.ContractType, now time.Time) (*model.MarketSnapshot, error)
	}

	// AnalysisSaver persists a finished context. Done is the only state in
	// which a context is handed to the saver.
	AnalysisSaver interface {
		SaveAnalysis(ctx context.Context, analysis *model.AnalysisContext) error
	}
)

// stageStatus is the explicit result of an optional stage: the orchestrator
// branches on it instead of catching errors.
type stageStatus int

const (
	stageOK stageStatus = iota
	stageDegraded
)

// registryOutcome is the result of the whole registry branch.
type registryOutcome struct {
	status    stageStatus
	reason    string
	doc       *model.RegistryDocument
	quality   *model.QualityAssessment
	consensus *model.OcrConsensusResult
}

// marketOutcome is the result of the whole market branch.
type marketOutcome struct {
	status   stageStatus
	reason   string
	snapshot *model.MarketSnapshot
}

// Deps are the collaborators an Orchestrator needs. Router, Parser and
// Scorer are concrete: they are pure and cheap. OpenDocument defaults to
// document.Open and exists for tests.
type Deps struct {
	Cases        CaseStore
	Artifacts    ArtifactStore
	Router       *quality.Router
	OCR          ConsensusRunner
	Parser       *registry.Parser
	Resolver     RegionResolver
	Market       Snapshotter
	Scorer       *score.Scorer
	Saver        AnalysisSaver
	Sink         audit.Sink
	Logger       *zap.Logger
	OpenDocument func(path string) (*document.SourceDocument, error)
	Now          func() time.Time
}

// Orchestrator drives the per-case state machine. It holds no per-case
// state itself; everything a run produces is owned by that run until folded
// into the immutable AnalysisContext.
type Orchestrator struct {
	deps  Deps
	group singleflight.Group
}

// NewOrchestrator creates an Orchestrator over deps.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Sink == nil {
		deps.Sink = audit.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.OpenDocument == nil {
		deps.OpenDocument = document.Open
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Run builds the AnalysisContext for one case. Duplicate concurrent calls
// for the same case ID collapse into one underlying execution, so the
// persisted context is always the product of a single run.
func (o *Orchestrator) Run(ctx context.Context, caseID string) (*model.AnalysisContext, error) {
	result, err, _ := o.group.Do(caseID, func() (interface{}, error) {
		return o.run(ctx, caseID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.AnalysisContext), nil
}

func (o *Orchestrator) run(ctx context.Context, caseID string) (*model.AnalysisContext, error) {
	started := o.deps.Now().UTC()
	trace := make([]model.StageTransition, 0, 8)
	step := func(stage model.Stage, note string) {
		trace = append(trace, model.StageTransition{Stage: stage, At: o.deps.Now().UTC(), Note: note})
		o.deps.Logger.Debug("stage", zap.String("case_id", caseID), zap.String("stage", string(stage)), zap.String("note", note))
	}

	c, err := o.deps.Cases.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, model.ErrCaseNotFound) {
			return nil, fmt.Errorf("case %s: %w", caseID, model.ErrCaseNotFound)
		}
		return nil, fmt.Errorf("load case %s: %w", caseID, err)
	}
	step(model.StageCaseLoaded, "")

	reg := o.registryStage(ctx, c)
	if reg.status == stageOK {
		step(model.StageRegistryParsed, "")
	} else {
		step(model.StageRegistryAbsent, reg.reason)
		o.deps.Sink.Record(ctx, audit.Event{
			Type:     audit.EventStageFailed,
			Severity: audit.SeverityWarning,
			CaseID:   c.ID,
			Metadata: map[string]interface{}{"stage": "registry", "reason": reg.reason},
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mkt := o.marketStage(ctx, c)
	if mkt.status == stageOK {
		step(model.StageMarketResolved, "")
	} else {
		step(model.StageMarketAbsent, mkt.reason)
		o.deps.Sink.Record(ctx, audit.Event{
			Type:     audit.EventStageFailed,
			Severity: audit.SeverityWarning,
			CaseID:   c.ID,
			Metadata: map[string]interface{}{"stage": "market", "reason": mkt.reason},
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	riskScore := o.deps.Scorer.Score(c.Terms(), reg.doc, mkt.snapshot)
	step(model.StageScored, "")

	features := BuildFeatures(c, reg.doc, mkt.snapshot, riskScore)
	step(model.StageFeaturesExtracted, "")

	prompt := BuildPrompt(c, features, riskScore, mkt.snapshot)
	step(model.StagePromptBuilt, "")

	analysis := &model.AnalysisContext{
		RunID:      uuid.NewString(),
		Case:       *c,
		Quality:    reg.quality,
		Consensus:  reg.consensus,
		Registry:   reg.doc,
		Market:     mkt.snapshot,
		Score:      riskScore,
		Features:   features,
		Prompt:     prompt,
		Partial:    riskScore.Partial,
		StartedAt:  started,
		FinishedAt: o.deps.Now().UTC(),
	}
	if reg.doc != nil {
		masked := registry.Mask(reg.doc)
		analysis.Masked = &masked
	}
	step(model.StageDone, "")
	analysis.Trace = trace

	// Done is the only publish point: persist, then hand to the caller.
	if o.deps.Saver != nil {
		if err := o.deps.Saver.SaveAnalysis(ctx, analysis); err != nil {
			o.deps.Logger.Warn("persist analysis failed", zap.String("case_id", c.ID), zap.Error(err))
			o.deps.Sink.Record(ctx, audit.Event{
				Type:     audit.EventStageFailed,
				Severity: audit.SeverityError,
				CaseID:   c.ID,
				Metadata: map[string]interface{}{"stage": "persist", "error": err.Error()},
			})
		}
	}

	o.deps.Sink.Record(ctx, audit.Event{
		Type:     audit.EventRunCompleted,
		Severity: audit.SeverityInfo,
		CaseID:   c.ID,
		Metadata: map[string]interface{}{
			"run_id":  analysis.RunID,
			"total":   riskScore.Total,
			"level":   string(riskScore.Level),
			"partial": riskScore.Partial,
		},
	})

	return analysis, nil
}

// registryStage runs artifact lookup, quality routing, extraction (direct
// or OCR consensus) and structuring. Every failure inside it degrades; it
// never returns an error.
func (o *Orchestrator) registryStage(ctx context.Context, c *model.Case) registryOutcome {
	artifact, err := o.deps.Artifacts.GetArtifact(ctx, c.ID)
	if err != nil {
		return registryOutcome{status: stageDegraded, reason: fmt.Sprintf("artifact lookup failed: %v", err)}
	}
	if artifact == nil {
		return registryOutcome{status: stageDegraded, reason: "no registry artifact"}
	}

	doc, err := o.deps.OpenDocument(artifact.StoragePath)
	if err != nil {
		// Fail safe: an unopenable artifact is assessed as nil, which
		// routes to OCR, but with no pages there is nothing to submit.
		assessment := o.deps.Router.Assess(nil)
		return registryOutcome{
			status:  stageDegraded,
			reason:  fmt.Sprintf("artifact unreadable: %v", err),
			quality: &assessment,
		}
	}

	assessment := o.deps.Router.Assess(doc)
	outcome := registryOutcome{quality: &assessment}

	var text string
	if assessment.Method == model.ExtractDirect {
		text = doc.Text()
	} else {
		consensus, err := o.deps.OCR.Run(ctx, c.ID, doc)
		if err != nil {
			// The text layer, however thin, beats nothing at all.
			if fallback := doc.Text(); fallback != "" {
				text = fallback
			} else {
				outcome.status = stageDegraded
				outcome.reason = fmt.Sprintf("ocr failed: %v", err)
				return outcome
			}
		} else {
			outcome.consensus = consensus
			text = consensus.Text
		}
	}

	if text == "" {
		outcome.status = stageDegraded
		outcome.reason = "no extractable text"
		return outcome
	}

	outcome.doc = o.deps.Parser.Parse(ctx, c.ID, text)
	outcome.status = stageOK
	return outcome
}

// marketStage resolves the region (unless the case already carries a code)
// and aggregates the transaction windows. Resolution failure degrades.
func (o *Orchestrator) marketStage(ctx context.Context, c *model.Case) marketOutcome {
	var region model.Region
	if c.RegionCode != nil && *c.RegionCode != "" {
		region = model.Region{Code: *c.RegionCode}
	} else {
		resolved, err := o.deps.Resolver.Resolve(ctx, c.Address)
		if err != nil {
			return marketOutcome{status: stageDegraded, reason: fmt.Sprintf("region unresolved: %v", err)}
		}
		region = resolved
	}

	snapshot, err := o.deps.Market.Snapshot(ctx, c.ID, region, c.ContractType, o.deps.Now())
	if err != nil {
		return marketOutcome{status: stageDegraded, reason: fmt.Sprintf("snapshot failed: %v", err)}
	}
	return marketOutcome{status: stageOK, snapshot: snapshot}
}
