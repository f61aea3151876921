package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// casesCmd groups case management subcommands
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Manage cases and their registry artifacts",
	Long: `Manage the case database that analyze and batch read from.

Cases are created here and read-only to the analysis pipeline: a rerun of
the same case always starts from the same inputs.`,
}

// caseRecord is one entry of an import file: a case plus an optional path
// to its registry document.
type caseRecord struct {
	model.Case
	Artifact string `json:"artifact,omitempty"`
}

var casesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import cases from a JSON file",
	Long: `Import reads a JSON array of cases and inserts them into the case
database. Re-importing an existing ID replaces it.

Each entry may carry an "artifact" path pointing at the case's registry
extract (PDF, HTML or plain text); the file is registered as the case's
registry artifact.

Example entry:
  {
    "id": "case-2026-0117",
    "address": "서울특별시 강남구 역삼동 123-45",
    "contract_type": "lease-deposit",
    "deposit": 500000000,
    "artifact": "artifacts/case-2026-0117/registry.pdf"
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runCasesImport,
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported cases",
	RunE:  runCasesList,
}

var casesURLCmd = &cobra.Command{
	Use:   "url <case-id>",
	Short: "Print a time-limited download URL for a case's registry artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesURL,
}

var urlTTL time.Duration

func init() {
	rootCmd.AddCommand(casesCmd)
	casesCmd.AddCommand(casesImportCmd)
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesURLCmd)

	casesURLCmd.Flags().DurationVar(&urlTTL, "ttl", 0, "link lifetime (default: store.sign_ttl)")
}

func runCasesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var records []caseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("import file contains no cases")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	cases := make([]model.Case, len(records))
	for i, record := range records {
		cases[i] = record.Case
	}
	count, err := a.store.ImportCases(ctx, cases)
	if err != nil {
		return fmt.Errorf("import cases: %w", err)
	}

	artifacts := 0
	for _, record := range records {
		if record.Artifact == "" {
			continue
		}
		if _, err := os.Stat(record.Artifact); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ %s: artifact not readable: %v\n", record.ID, err)
			continue
		}
		err := a.store.PutArtifact(ctx, model.SourceArtifact{
			CaseID:      record.ID,
			StoragePath: record.Artifact,
			ContentType: mime.TypeByExtension(filepath.Ext(record.Artifact)),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ %s: register artifact: %v\n", record.ID, err)
			continue
		}
		artifacts++
	}

	fmt.Fprintf(os.Stderr, "✓ Imported %d cases (%d with registry artifacts)\n", count, artifacts)
	return nil
}

func runCasesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	cases, err := a.store.ListCases(context.Background())
	if err != nil {
		return fmt.Errorf("list cases: %w", err)
	}
	if len(cases) == 0 {
		fmt.Fprintln(os.Stderr, "No cases imported yet.")
		return nil
	}

	for _, c := range cases {
		fmt.Printf("%-24s %-24s %s\n", c.ID, c.ContractType, c.Address)
	}
	return nil
}

func runCasesURL(cmd *cobra.Command, args []string) error {
	caseID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if _, err := a.store.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, model.ErrCaseNotFound) {
			return fmt.Errorf("case %s not found", caseID)
		}
		return err
	}

	artifact, err := a.store.GetArtifact(ctx, caseID)
	if err != nil {
		return fmt.Errorf("look up artifact: %w", err)
	}
	if artifact == nil {
		return fmt.Errorf("case %s has no registry artifact", caseID)
	}

	signed, err := a.store.SignedDownloadURL(artifact, urlTTL)
	if err != nil {
		return fmt.Errorf("sign download URL: %w", err)
	}
	fmt.Println(signed)
	return nil
}
