package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

var (
	outJSON           string
	timeout           time.Duration
	noCache           bool
	narrativeEnabled  bool
	narrativeProvider string
	narrativeModel    string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <case-id>",
	Short: "Analyze a single case and produce a risk report",
	Long: `Analyze runs one case through the full pipeline:
- Load the case and its registry artifact
- Route the document to direct extraction or dual-engine OCR
- Structure the registry's liens, seizures and lease rights
- Aggregate recent comparable transactions for the region
- Compute the deterministic risk score with per-factor reasons

Missing inputs degrade the run instead of failing it: the report is then
marked partial and lists what was unavailable.

Example:
  jipcheck analyze case-2026-0117
  jipcheck analyze case-2026-0117 --json report.json
  jipcheck analyze case-2026-0117 --narrative --narrative-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: <output.dir>/<case-id>.json)")

	// Pipeline flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the market data cache (force fresh fetches)")

	// Narrative flags
	analyzeCmd.Flags().BoolVar(&narrativeEnabled, "narrative", false, "generate a plain-language narrative from the risk report")
	analyzeCmd.Flags().StringVar(&narrativeProvider, "narrative-provider", "openai", "narrative provider (openai, anthropic)")
	analyzeCmd.Flags().StringVar(&narrativeModel, "narrative-model", "", "narrative model name (provider default when empty)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	caseID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if narrativeEnabled {
		cfg.Narrative.Provider = narrativeProvider
		if narrativeModel != "" {
			cfg.Narrative.Model = narrativeModel
		}
		if err := narrativeAPIKeyFromEnv(cfg); err != nil {
			return err
		}
	} else {
		cfg.Narrative.Provider = ""
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", caseID)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	analysis, err := a.orchestrator.Run(ctx, caseID)
	if err != nil {
		if errors.Is(err, model.ErrCaseNotFound) {
			return fmt.Errorf("case %s not found (import it first: jipcheck cases import)", caseID)
		}
		return fmt.Errorf("analyze failed: %w", err)
	}

	printRiskSummary(analysis)

	if narrativeEnabled && a.narrator != nil {
		resp, err := a.narrator.Generate(ctx, analysis.Prompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Narrative generation failed: %v\n", err)
		} else {
			fmt.Println()
			fmt.Println(resp.Text)
			if cfg.Output.Verbose {
				fmt.Fprintf(os.Stderr, "\n✓ Narrative generated by %s/%s (%d tokens)\n", a.narrator.Name(), resp.Model, resp.TokensUsed)
			}
		}
	}

	path := outJSON
	if path == "" {
		path = filepath.Join(cfg.Output.Dir, caseID+".json")
	}
	if err := writeAnalysisJSON(analysis, path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Report written: %s\n", path)
	}
	return nil
}

// printRiskSummary writes the human-readable digest to stderr.
func printRiskSummary(analysis *model.AnalysisContext) {
	fmt.Fprintf(os.Stderr, "✓ Risk score: %d/100 (%s)\n", analysis.Score.Total, analysis.Score.Level)
	for _, factor := range analysis.Score.Factors {
		fmt.Fprintf(os.Stderr, "  - %s: %d/%d - %s\n", factor.Name, factor.Points, factor.Max, factor.Reason)
	}
	if analysis.Partial {
		fmt.Fprintf(os.Stderr, "⚠ Partial result, missing: %v\n", analysis.Score.Missing)
	}
}

// writeAnalysisJSON renders the context to a file. The unmasked registry
// never serializes; only the masked view leaves the process.
func writeAnalysisJSON(analysis *model.AnalysisContext, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
