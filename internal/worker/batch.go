package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Analyzer runs a single case end to end.
type Analyzer interface {
	Run(ctx context.Context, caseID string) (*model.AnalysisContext, error)
}

// AnalyzeJob analyzes one case.
type AnalyzeJob struct {
	CaseID   string
	Analyzer Analyzer
}

// Execute runs the analysis and wraps the outcome.
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.Run(ctx, j.CaseID)
	if err != nil {
		return &AnalysisResult{CaseID: j.CaseID, Error: err}
	}
	return &AnalysisResult{CaseID: j.CaseID, Context: analysis}
}

// AnalysisResult is the per-case outcome of a batch run. A case that
// degraded mid-pipeline still carries a Context (with Partial set); Error
// is reserved for cases that produced nothing at all.
type AnalysisResult struct {
	CaseID  string
	Context *model.AnalysisContext
	Error   error
}

// GetError returns the error from the analysis, if any.
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple cases concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessIDs analyzes the given case IDs concurrently. One result per ID;
// a failing case never aborts the rest of the batch.
func (b *BatchProcessor) ProcessIDs(ctx context.Context, ids []string) []*AnalysisResult {
	if len(ids) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, id := range ids {
		pool.Submit(&AnalyzeJob{CaseID: id, Analyzer: b.analyzer})
	}

	results := pool.Wait()

	analysisResults := make([]*AnalysisResult, len(results))
	for i, result := range results {
		analysisResults[i] = result.(*AnalysisResult)
	}
	return analysisResults
}

// ProcessFile reads case IDs from a file and analyzes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalysisResult, error) {
	ids, err := ReadCaseIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read case IDs: %w", err)
	}
	return b.ProcessIDs(ctx, ids), nil
}

// ReadCaseIDsFromFile reads case IDs from a file, one per line. Blank
// lines and # comments are skipped, duplicates collapsed.
func ReadCaseIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return ids, nil
}
