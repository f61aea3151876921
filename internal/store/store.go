// Package store is the embedded case/artifact/analysis database. Cases are
// created here by the import path and read-only to the analysis core;
// finished AnalysisContexts are persisted atomically at Done.
package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Store wraps the SQLite database plus download-URL signing.
type Store struct {
	db         *sql.DB
	signSecret []byte
	signTTL    time.Duration
}

// Open opens (and if needed initializes) the database at path.
func Open(path, signSecret string, signTTL time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id            TEXT PRIMARY KEY,
		address       TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		deposit       INTEGER,
		price         INTEGER,
		monthly_rent  INTEGER,
		region_code   TEXT,
		created_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		case_id      TEXT PRIMARY KEY,
		storage_path TEXT NOT NULL,
		content_type TEXT DEFAULT '',
		uploaded_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analyses (
		case_id     TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL,
		total       INTEGER NOT NULL,
		level       TEXT NOT NULL,
		partial     INTEGER NOT NULL,
		context     TEXT NOT NULL,
		finished_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_level ON analyses(level);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if signTTL <= 0 {
		signTTL = 15 * time.Minute
	}
	return &Store{db: db, signSecret: []byte(signSecret), signTTL: signTTL}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCase reads one case. Returns model.ErrCaseNotFound when absent.
func (s *Store) GetCase(ctx context.Context, id string) (*model.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, contract_type, deposit, price, monthly_rent, region_code, created_at
		 FROM cases WHERE id = ?`, id)

	var c model.Case
	var contractType string
	var deposit, price, rent sql.NullInt64
	var regionCode sql.NullString
	err := row.Scan(&c.ID, &c.Address, &contractType, &deposit, &price, &rent, &regionCode, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read case: %w", err)
	}

	c.ContractType = model.ContractType(contractType)
	c.Deposit = nullInt(deposit)
	c.Price = nullInt(price)
	c.MonthlyRent = nullInt(rent)
	if regionCode.Valid && regionCode.String != "" {
		code := regionCode.String
		c.RegionCode = &code
	}
	return &c, nil
}

// ImportCases inserts or replaces cases. This is the external creation
// path; the analysis core never writes the cases table.
func (s *Store) ImportCases(ctx context.Context, cases []model.Case) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO cases (id, address, contract_type, deposit, price, monthly_rent, region_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	count := 0
	for _, c := range cases {
		if c.ID == "" || !c.ContractType.Valid() {
			return count, fmt.Errorf("case %q: missing id or invalid contract type %q", c.ID, c.ContractType)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var regionCode interface{}
		if c.RegionCode != nil {
			regionCode = *c.RegionCode
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Address, string(c.ContractType),
			intPtr(c.Deposit), intPtr(c.Price), intPtr(c.MonthlyRent), regionCode, createdAt); err != nil {
			return count, fmt.Errorf("import case %s: %w", c.ID, err)
		}
		count++
	}
	return count, tx.Commit()
}

// ListCases returns all case IDs with their contract types, import order.
func (s *Store) ListCases(ctx context.Context) ([]model.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, contract_type, created_at FROM cases ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cases []model.Case
	for rows.Next() {
		var c model.Case
		var contractType string
		if err := rows.Scan(&c.ID, &c.Address, &contractType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.ContractType = model.ContractType(contractType)
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// GetArtifact returns the registry artifact for a case, or (nil, nil) when
// the case has none.
func (s *Store) GetArtifact(ctx context.Context, caseID string) (*model.SourceArtifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT case_id, storage_path, content_type, uploaded_at FROM artifacts WHERE case_id = ?`, caseID)

	var a model.SourceArtifact
	err := row.Scan(&a.CaseID, &a.StoragePath, &a.ContentType, &a.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &a, nil
}

// PutArtifact registers (or replaces) the registry document for a case.
func (s *Store) PutArtifact(ctx context.Context, artifact model.SourceArtifact) error {
	uploadedAt := artifact.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (case_id, storage_path, content_type, uploaded_at) VALUES (?, ?, ?, ?)`,
		artifact.CaseID, artifact.StoragePath, artifact.ContentType, uploadedAt)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

// SignedDownloadURL builds a time-limited download reference for an
// artifact: path?exp=<unix>&sig=<hmac>. Verification is VerifyDownloadURL.
func (s *Store) SignedDownloadURL(artifact *model.SourceArtifact, ttl time.Duration) (string, error) {
	if artifact == nil || artifact.StoragePath == "" {
		return "", errors.New("no artifact to sign")
	}
	if len(s.signSecret) == 0 {
		return "", errors.New("no signing secret configured")
	}
	if ttl <= 0 {
		ttl = s.signTTL
	}

	expires := time.Now().Add(ttl).Unix()
	sig := s.sign(artifact.StoragePath, expires)
	return fmt.Sprintf("%s?exp=%d&sig=%s", artifact.StoragePath, expires, sig), nil
}

// VerifyDownloadURL checks signature and expiry of a signed reference.
func (s *Store) VerifyDownloadURL(path string, expires int64, sig string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	want := s.sign(path, expires)
	return hmac.Equal([]byte(want), []byte(sig))
}

func (s *Store) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.signSecret)
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SaveAnalysis persists a finished context. The row is replaced in one
// statement: a reader sees either the previous run or the new one, never a
// mix of the two.
func (s *Store) SaveAnalysis(ctx context.Context, analysis *model.AnalysisContext) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO analyses (case_id, run_id, total, level, partial, context, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		analysis.Case.ID, analysis.RunID, analysis.Score.Total, string(analysis.Score.Level),
		boolInt(analysis.Partial), string(payload), analysis.FinishedAt)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// GetAnalysis reads the persisted context for a case, or (nil, nil) when
// the case has not been analyzed.
func (s *Store) GetAnalysis(ctx context.Context, caseID string) (*model.AnalysisContext, error) {
	row := s.db.QueryRowContext(ctx, `SELECT context FROM analyses WHERE case_id = ?`, caseID)

	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read analysis: %w", err)
	}

	var analysis model.AnalysisContext
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &analysis, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func intPtr(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
