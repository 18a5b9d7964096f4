package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoDatabase is returned when the corpus database file does not exist.
var ErrNoDatabase = errors.New("company database not found")

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	corp_code        TEXT UNIQUE NOT NULL,
	corp_name        TEXT NOT NULL,
	corp_eng_name    TEXT,
	stock_code       TEXT,
	modify_date      TEXT,
	corp_name_lower  TEXT,
	stock_code_lower TEXT
)`

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_corp_code ON companies(corp_code)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_code ON companies(stock_code)`,
	`CREATE INDEX IF NOT EXISTS idx_corp_name_lower ON companies(corp_name_lower)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_code_lower ON companies(stock_code_lower)`,
	`CREATE INDEX IF NOT EXISTS idx_listed ON companies(stock_code) WHERE stock_code IS NOT NULL AND stock_code != ''`,
}

const upsert = `
INSERT INTO companies (corp_code, corp_name, corp_eng_name, stock_code, modify_date, corp_name_lower, stock_code_lower)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(corp_code) DO UPDATE SET
	corp_name = excluded.corp_name,
	corp_eng_name = excluded.corp_eng_name,
	stock_code = excluded.stock_code,
	modify_date = excluded.modify_date,
	corp_name_lower = excluded.corp_name_lower,
	stock_code_lower = excluded.stock_code_lower`

// OpenDB opens (creating if needed) the SQLite database at path.
func OpenDB(path string) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := abs + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// SQLiteSource loads the corpus from the companies table.
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a loader for the database at path.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Path is the absolute database path.
func (s *SQLiteSource) Path() string {
	if abs, err := filepath.Abs(s.path); err == nil {
		return abs
	}
	return s.path
}

// Exists reports whether the database file is present.
func (s *SQLiteSource) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads every company, ordered by corp_code.
func (s *SQLiteSource) Load(ctx context.Context) ([]Record, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, s.Path())
	}

	db, err := OpenDB(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT corp_code, corp_name, COALESCE(corp_eng_name, ''), COALESCE(stock_code, ''), COALESCE(modify_date, '')
		FROM companies
		ORDER BY corp_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.CorpCode, &r.CorpName, &r.CorpEngName, &r.StockCode, &r.ModifyDate); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		r.StockCode = strings.TrimSpace(r.StockCode)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read companies: %w", err)
	}
	return records, nil
}

// ImportStats summarises an Import run.
type ImportStats struct {
	Total    int
	Listed   int
	Skipped  int
	Duration time.Duration
}

// Unlisted is Total minus Listed.
func (s ImportStats) Unlisted() int { return s.Total - s.Listed }

// Import creates the schema in db and upserts records in one transaction.
// Records without a corp code or name are skipped.
func Import(ctx context.Context, db *sql.DB, records []Record) (ImportStats, error) {
	start := time.Now()
	var stats ImportStats

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return stats, fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return stats, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		code := strings.TrimSpace(r.CorpCode)
		name := strings.TrimSpace(r.CorpName)
		if code == "" || name == "" {
			stats.Skipped++
			continue
		}
		stock := strings.TrimSpace(r.StockCode)
		if _, err := stmt.ExecContext(ctx, code, name, r.CorpEngName, stock, r.ModifyDate,
			strings.ToLower(name), strings.ToLower(stock)); err != nil {
			return stats, fmt.Errorf("failed to import %s: %w", code, err)
		}
		stats.Total++
		if stock != "" {
			stats.Listed++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit import: %w", err)
	}

	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return stats, fmt.Errorf("failed to create index: %w", err)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
