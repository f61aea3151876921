package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyeonwoo-dev/jipcheck/internal/audit"
	"github.com/hyeonwoo-dev/jipcheck/internal/document"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Runner drives both engines over the same page set and reconciles
// their output. The engines run concurrently against each other; pages
// within one engine run sequentially so page order is preserved.
type Runner struct {
	engineA Engine
	engineB Engine
	sink    audit.Sink
	logger  *zap.Logger
}

// NewRunner creates a Runner over the two engines.
func NewRunner(engineA, engineB Engine, sink audit.Sink, logger *zap.Logger) *Runner {
	if sink == nil {
		sink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engineA: engineA, engineB: engineB, sink: sink, logger: logger}
}

// engineRun is one engine's pass over the document.
type engineRun struct {
	text        string
	failedPages []int
}

// Run submits every page of doc to both engines and reconciles the two
// full-document texts. A page failure on one engine becomes an inline
// marker, not an error; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, caseID string, doc *document.SourceDocument) (*model.OcrConsensusResult, error) {
	if doc == nil || doc.PageCount() == 0 {
		return nil, errors.New("no pages to extract")
	}

	requests := make([]PageRequest, 0, doc.PageCount())
	for _, page := range doc.Pages {
		requests = append(requests, PageRequest{
			CaseID:      caseID,
			Page:        page.Number,
			ContentType: doc.ContentType,
			Payload:     doc.Payload(),
		})
	}

	var runA, runB engineRun
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		runA, err = r.runEngine(gctx, r.engineA, caseID, requests)
		return err
	})
	g.Go(func() error {
		var err error
		runB, err = r.runEngine(gctx, r.engineB, caseID, requests)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := Reconcile(r.engineA.Name(), r.engineB.Name(), runA.text, runB.text)
	result.PageFailures = countDistinct(runA.failedPages, runB.failedPages)

	if result.Tier == model.TierLow {
		r.sink.Record(ctx, audit.Event{
			Type:     audit.EventOcrDivergence,
			Severity: audit.SeverityWarning,
			CaseID:   caseID,
			Metadata: map[string]interface{}{
				"similarity": result.Similarity,
				"engine_a":   result.EngineA,
				"engine_b":   result.EngineB,
			},
		})
	}

	r.logger.Debug("ocr consensus",
		zap.String("case_id", caseID),
		zap.Float64("similarity", result.Similarity),
		zap.String("tier", string(result.Tier)),
		zap.Int("page_failures", result.PageFailures))

	return &result, nil
}

// runEngine extracts all pages sequentially on one engine. A failed
// page yields an unreadable marker in place of its text and is
// reported to the audit sink; cancellation aborts the whole pass.
func (r *Runner) runEngine(ctx context.Context, engine Engine, caseID string, requests []PageRequest) (engineRun, error) {
	var run engineRun
	var parts []string

	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		text, err := engine.ExtractPage(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return run, err
			}
			parts = append(parts, pageFailureMarker(req.Page))
			run.failedPages = append(run.failedPages, req.Page)
			r.sink.Record(ctx, audit.Event{
				Type:     audit.EventPageFailure,
				Severity: audit.SeverityWarning,
				CaseID:   caseID,
				Metadata: map[string]interface{}{
					"engine": engine.Name(),
					"page":   req.Page,
					"error":  err.Error(),
				},
			})
			continue
		}
		parts = append(parts, text)
	}

	run.text = strings.Join(parts, "\n")
	return run, nil
}

// pageFailureMarker is the inline placeholder for a page one engine
// could not read.
func pageFailureMarker(page int) string {
	return fmt.Sprintf("[[page %d unreadable]]", page)
}

// countDistinct counts pages that failed on at least one engine.
func countDistinct(a, b []int) int {
	seen := make(map[int]struct{}, len(a)+len(b))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	for _, p := range b {
		seen[p] = struct{}{}
	}
	return len(seen)
}
