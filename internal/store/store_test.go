package store

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "test-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func i64(v int64) *int64 { return &v }

func TestImportAndGetCase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	region := "11680"
	cases := []model.Case{
		{
			ID:           "case-1",
			Address:      "서울특별시 강남구 역삼동 123-45",
			ContractType: model.ContractLeaseDeposit,
			Deposit:      i64(500_000_000),
			RegionCode:   &region,
		},
		{
			ID:           "case-2",
			Address:      "서울특별시 송파구 잠실동 67-8",
			ContractType: model.ContractSale,
			Price:        i64(1_200_000_000),
		},
	}

	n, err := s.ImportCases(ctx, cases)
	if err != nil {
		t.Fatalf("ImportCases: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 imported, got %d", n)
	}

	c, err := s.GetCase(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if c.ContractType != model.ContractLeaseDeposit {
		t.Errorf("Expected contract type %s, got %s", model.ContractLeaseDeposit, c.ContractType)
	}
	if c.Deposit == nil || *c.Deposit != 500_000_000 {
		t.Errorf("Expected deposit 500000000, got %v", c.Deposit)
	}
	if c.Price != nil {
		t.Errorf("Absent price must stay nil, got %v", *c.Price)
	}
	if c.RegionCode == nil || *c.RegionCode != "11680" {
		t.Errorf("Expected region code 11680, got %v", c.RegionCode)
	}

	c2, err := s.GetCase(ctx, "case-2")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if c2.RegionCode != nil {
		t.Errorf("Absent region code must stay nil, got %v", *c2.RegionCode)
	}
	if c2.Deposit != nil {
		t.Errorf("Absent deposit must stay nil, got %v", *c2.Deposit)
	}
}

func TestGetCase_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetCase(context.Background(), "missing")
	if !errors.Is(err, model.ErrCaseNotFound) {
		t.Errorf("Expected ErrCaseNotFound, got %v", err)
	}
}

func TestImportCases_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ImportCases(context.Background(), []model.Case{
		{ID: "case-1", Address: "addr", ContractType: "timeshare"},
	})
	if err == nil {
		t.Error("Expected an error for an invalid contract type")
	}

	_, err = s.ImportCases(context.Background(), []model.Case{
		{Address: "addr", ContractType: model.ContractSale},
	})
	if err == nil {
		t.Error("Expected an error for a missing case ID")
	}
}

func TestImportCases_ReplaceIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := model.Case{ID: "case-1", Address: "old", ContractType: model.ContractSale, Price: i64(100)}
	if _, err := s.ImportCases(ctx, []model.Case{c}); err != nil {
		t.Fatalf("ImportCases: %v", err)
	}
	c.Address = "new"
	c.Price = i64(200)
	if _, err := s.ImportCases(ctx, []model.Case{c}); err != nil {
		t.Fatalf("ImportCases (replace): %v", err)
	}

	got, err := s.GetCase(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Address != "new" || got.Price == nil || *got.Price != 200 {
		t.Errorf("Expected replaced case, got %+v", got)
	}

	all, err := s.ListCases(ctx)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 case after replace, got %d", len(all))
	}
}

func TestArtifacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.GetArtifact(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if a != nil {
		t.Errorf("Expected (nil, nil) for a case without an artifact, got %+v", a)
	}

	err = s.PutArtifact(ctx, model.SourceArtifact{
		CaseID:      "case-1",
		StoragePath: "artifacts/case-1/registry.pdf",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("PutArtifact: %v", err)
	}

	a, err = s.GetArtifact(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if a == nil || a.StoragePath != "artifacts/case-1/registry.pdf" {
		t.Errorf("Unexpected artifact: %+v", a)
	}
	if a.UploadedAt.IsZero() {
		t.Error("Expected a default upload timestamp")
	}
}

func TestSignedDownloadURL(t *testing.T) {
	s := openTestStore(t)
	artifact := &model.SourceArtifact{CaseID: "case-1", StoragePath: "artifacts/case-1/registry.pdf"}

	signed, err := s.SignedDownloadURL(artifact, time.Minute)
	if err != nil {
		t.Fatalf("SignedDownloadURL: %v", err)
	}

	path, query, ok := strings.Cut(signed, "?")
	if !ok || path != artifact.StoragePath {
		t.Fatalf("Unexpected signed URL shape: %s", signed)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("Parse query: %v", err)
	}
	expires, err := strconv.ParseInt(values.Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("Parse exp: %v", err)
	}
	sig := values.Get("sig")

	if !s.VerifyDownloadURL(path, expires, sig) {
		t.Error("Fresh signature must verify")
	}
	if s.VerifyDownloadURL(path, expires, sig+"00") {
		t.Error("Tampered signature must not verify")
	}
	if s.VerifyDownloadURL("artifacts/case-2/registry.pdf", expires, sig) {
		t.Error("Signature must be bound to the path")
	}
	if s.VerifyDownloadURL(path, time.Now().Add(-time.Minute).Unix(), sig) {
		t.Error("Expired reference must not verify")
	}
}

func TestSignedDownloadURL_Errors(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.SignedDownloadURL(nil, time.Minute); err == nil {
		t.Error("Expected an error for a nil artifact")
	}

	unsigned, err := Open(filepath.Join(t.TempDir(), "test.db"), "", time.Minute)
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	defer func() { _ = unsigned.Close() }()
	if _, err := unsigned.SignedDownloadURL(&model.SourceArtifact{StoragePath: "p"}, time.Minute); err == nil {
		t.Error("Expected an error without a signing secret")
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.GetAnalysis(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got != nil {
		t.Errorf("Expected (nil, nil) before any run, got %+v", got)
	}

	analysis := &model.AnalysisContext{
		RunID: "run-1",
		Case:  model.Case{ID: "case-1", Address: "addr", ContractType: model.ContractLeaseDeposit, Deposit: i64(500_000_000)},
		Score: model.RiskScore{
			Total: 35,
			Level: model.LevelCaution,
			Factors: []model.Factor{
				{Name: "jeonse_ratio", Points: 25, Max: 40, Reason: "deposit is 85.0% of estimated value"},
			},
		},
		Partial:    true,
		Prompt:     "Risk score: 35/100 (caution)",
		FinishedAt: time.Now().UTC(),
	}
	if err := s.SaveAnalysis(ctx, analysis); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, err = s.GetAnalysis(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a persisted analysis")
	}
	if got.RunID != "run-1" || got.Score.Total != 35 || got.Score.Level != model.LevelCaution {
		t.Errorf("Unexpected analysis: run=%s total=%d level=%s", got.RunID, got.Score.Total, got.Score.Level)
	}
	if !got.Partial {
		t.Error("Partial flag must survive the round trip")
	}
	if len(got.Score.Factors) != 1 || got.Score.Factors[0].Name != "jeonse_ratio" {
		t.Errorf("Factors must survive the round trip, got %+v", got.Score.Factors)
	}

	// A rerun replaces the previous run in one statement.
	analysis.RunID = "run-2"
	analysis.Score.Total = 10
	analysis.Score.Level = model.LevelSafe
	analysis.Partial = false
	if err := s.SaveAnalysis(ctx, analysis); err != nil {
		t.Fatalf("SaveAnalysis (replace): %v", err)
	}
	got, err = s.GetAnalysis(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.RunID != "run-2" || got.Score.Total != 10 {
		t.Errorf("Expected the rerun to replace the row, got run=%s total=%d", got.RunID, got.Score.Total)
	}
}
