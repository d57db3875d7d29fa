// Package store persists claims across runs for drift comparison.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/daybrief/internal/model"
)

const dateLayout = "2006-01-02"

// Store is a SQLite-backed claim history. All methods are safe for
// concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the claim database at path. ":memory:" opens an
// in-memory database for tests.
func Open(path string) (*Store, error) {
	connStr := path
	if path == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the claims table and applies additive column migrations.
// Databases created before the routing fields existed gain them here.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		ticker TEXT,
		author TEXT,
		source TEXT,
		claim_type TEXT,
		bullets TEXT,
		confidence_level TEXT,
		belief_pressure TEXT,
		time_sensitivity TEXT,
		date_stored TEXT,
		source_citation TEXT,
		UNIQUE(claim_id, date_stored)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	added := []struct {
		name    string
		colType string
	}{
		{"category", "TEXT"},
		{"event_type", "TEXT"},
		{"is_descriptive_event", "INTEGER DEFAULT 0"},
		{"has_belief_delta", "INTEGER DEFAULT 0"},
		{"sector_implication", "TEXT"},
	}
	for _, col := range added {
		exists, err := s.columnExists("claims", col.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE claims ADD COLUMN %s %s", col.name, col.colType)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_claims_ticker ON claims(ticker);
	CREATE INDEX IF NOT EXISTS idx_claims_author ON claims(author);
	CREATE INDEX IF NOT EXISTS idx_claims_source ON claims(source);
	CREATE INDEX IF NOT EXISTS idx_claims_date ON claims(date_stored);
	`
	if _, err := s.db.Exec(indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return count > 0, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveClaims stores claims under the given date (YYYY-MM-DD, today when
// empty). Refiling the same claim on the same day replaces the earlier row,
// so a rerun does not duplicate history. Returns the number of claims
// written.
func (s *Store) SaveClaims(claims []model.Claim, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date == "" {
		date = time.Now().Format(dateLayout)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO claims
		(claim_id, doc_id, ticker, author, source, claim_type, bullets,
		 confidence_level, belief_pressure, time_sensitivity, date_stored, source_citation,
		 category, event_type, is_descriptive_event, has_belief_delta, sector_implication)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, c := range claims {
		source, author := ParseCitation(c.SourceCitation)
		bullets, err := json.Marshal(c.Bullets)
		if err != nil {
			return stored, fmt.Errorf("encode bullets for %s: %w", c.ClaimID, err)
		}
		_, err = stmt.Exec(
			c.ClaimID,
			c.DocID,
			c.Ticker,
			author,
			source,
			c.ClaimType,
			string(bullets),
			string(c.Confidence),
			string(c.BeliefPressure),
			string(c.TimeSensitivity),
			date,
			c.SourceCitation,
			c.Category,
			c.EventType,
			boolToInt(c.IsDescriptiveEvent),
			boolToInt(c.HasBeliefDelta),
			c.SectorImplication,
		)
		if err != nil {
			return stored, fmt.Errorf("store claim %s: %w", c.ClaimID, err)
		}
		stored++
	}

	return stored, tx.Commit()
}

// ParseCitation splits a "Source, Analyst, p.N, date" citation into its
// source and author parts. Either may be empty.
func ParseCitation(citation string) (source, author string) {
	if citation == "" {
		return "", ""
	}
	parts := strings.Split(citation, ",")
	source = strings.TrimSpace(parts[0])
	if len(parts) >= 2 {
		author = strings.TrimSpace(parts[1])
	}
	return source, author
}

// ClaimsForTicker returns claims for a ticker stored within the last days.
// With excludeToday set, claims filed today are omitted so today's run can
// be compared against genuine priors.
func (s *Store) ClaimsForTicker(ticker string, days int, excludeToday bool) ([]model.HistoricalClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days).Format(dateLayout)
	today := time.Now().Format(dateLayout)

	query := selectColumns + " WHERE ticker = ? AND date_stored >= ?"
	args := []any{ticker, cutoff}
	if excludeToday {
		query += " AND date_stored < ?"
		args = append(args, today)
	}
	query += " ORDER BY date_stored DESC"

	return s.queryClaims(query, args...)
}

// ClaimsForAuthor returns claims whose author partially matches the given
// name, optionally restricted to one ticker.
func (s *Store) ClaimsForAuthor(author string, days int, ticker string) ([]model.HistoricalClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days).Format(dateLayout)

	query := selectColumns + " WHERE author LIKE ? AND date_stored >= ?"
	args := []any{"%" + author + "%", cutoff}
	if ticker != "" {
		query += " AND ticker = ?"
		args = append(args, ticker)
	}
	query += " ORDER BY date_stored DESC"

	return s.queryClaims(query, args...)
}

// PriorClaims returns every claim from the lookback window, excluding
// today. This is the drift detector's comparison set.
func (s *Store) PriorClaims(days int) ([]model.HistoricalClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days).Format(dateLayout)
	today := time.Now().Format(dateLayout)

	query := selectColumns + " WHERE date_stored >= ? AND date_stored < ? ORDER BY date_stored DESC"
	return s.queryClaims(query, cutoff, today)
}

// ClaimsByDate returns every claim stored on one date (YYYY-MM-DD).
func (s *Store) ClaimsByDate(date string) ([]model.HistoricalClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryClaims(selectColumns+" WHERE date_stored = ?", date)
}

// Stats summarizes what the store holds.
type Stats struct {
	TotalClaims   int
	UniqueTickers int
	UniqueAuthors int
	DaysTracked   int
}

// Stats reports storage counts.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM claims", &st.TotalClaims},
		{"SELECT COUNT(DISTINCT ticker) FROM claims WHERE ticker IS NOT NULL AND ticker != ''", &st.UniqueTickers},
		{"SELECT COUNT(DISTINCT author) FROM claims WHERE author IS NOT NULL AND author != ''", &st.UniqueAuthors},
		{"SELECT COUNT(DISTINCT date_stored) FROM claims", &st.DaysTracked},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("store stats: %w", err)
		}
	}
	return st, nil
}

const selectColumns = `
	SELECT claim_id, doc_id, ticker, author, source, claim_type, bullets,
	       confidence_level, belief_pressure, time_sensitivity, date_stored, source_citation,
	       category, event_type, is_descriptive_event, has_belief_delta, sector_implication
	FROM claims`

func (s *Store) queryClaims(query string, args ...any) ([]model.HistoricalClaim, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []model.HistoricalClaim
	for rows.Next() {
		hc, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, hc)
	}
	return claims, rows.Err()
}

func scanClaim(rows *sql.Rows) (model.HistoricalClaim, error) {
	var (
		hc                  model.HistoricalClaim
		ticker              sql.NullString
		author              sql.NullString
		source              sql.NullString
		claimType           sql.NullString
		bullets             sql.NullString
		confidence          sql.NullString
		pressure            sql.NullString
		sensitivity         sql.NullString
		citation            sql.NullString
		category            sql.NullString
		eventType           sql.NullString
		descriptive         sql.NullInt64
		beliefDelta         sql.NullInt64
		sectorImplication   sql.NullString
	)

	err := rows.Scan(
		&hc.ClaimID,
		&hc.DocID,
		&ticker,
		&author,
		&source,
		&claimType,
		&bullets,
		&confidence,
		&pressure,
		&sensitivity,
		&hc.DateStored,
		&citation,
		&category,
		&eventType,
		&descriptive,
		&beliefDelta,
		&sectorImplication,
	)
	if err != nil {
		return model.HistoricalClaim{}, fmt.Errorf("scan claim: %w", err)
	}

	hc.Ticker = ticker.String
	hc.Author = author.String
	hc.Source = source.String
	hc.ClaimType = claimType.String
	hc.Confidence = model.Confidence(confidence.String)
	hc.BeliefPressure = model.BeliefPressure(pressure.String)
	hc.TimeSensitivity = model.TimeSensitivity(sensitivity.String)
	hc.SourceCitation = citation.String
	hc.Category = category.String
	hc.EventType = eventType.String
	hc.IsDescriptiveEvent = descriptive.Int64 != 0
	hc.HasBeliefDelta = beliefDelta.Int64 != 0
	hc.SectorImplication = sectorImplication.String

	if bullets.String != "" {
		if err := json.Unmarshal([]byte(bullets.String), &hc.Bullets); err != nil {
			// Legacy rows may hold plain text instead of a JSON array.
			hc.Bullets = []string{bullets.String}
		}
	}
	return hc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
