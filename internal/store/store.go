// Package store provides SQLite persistence for Sentinel.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrDuplicateURL is returned by InsertIncident when an incident with the
// same URL already exists. Callers treat it as a successful dedup, not a
// failure; the unique constraint is the race-safety backstop behind the
// read-then-write dedup gate.
var ErrDuplicateURL = errors.New("store: incident URL already exists")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Source is a news publisher with a manually curated reliability score.
type Source struct {
	ID          int64
	Name        string
	Domain      string
	Reliability float64
	Active      bool
	CreatedAt   time.Time
}

// Incident is a persisted, classified crime report derived from one article.
type Incident struct {
	ID           int64
	Title        string
	Description  string
	URL          string
	SourceID     int64
	State        *string
	City         *string
	CrimeType    string
	Severity     string
	PublishedAt  time.Time
	DiscoveredAt time.Time
	Confidence   float64
	Verified     bool
	Duplicate    bool
}

// APILog is one append-only audit row per upstream fetch call. Also the
// wire shape of the admin status endpoint's last_run field.
type APILog struct {
	ID                int64     `json:"id"`
	Endpoint          string    `json:"endpoint"`
	Query             string    `json:"query"`
	Status            int       `json:"status_code"`
	ResponseTimeMS    int64     `json:"response_time_ms"`
	ArticlesFound     int       `json:"articles_found"`
	ArticlesProcessed int       `json:"articles_processed"`
	Errors            *string   `json:"errors"`
	CreatedAt         time.Time `json:"created_at"`
}

// IncidentFilter narrows ListIncidents results. Zero values mean "no
// constraint" except Limit, which defaults to 100.
type IncidentFilter struct {
	Since        time.Time
	Severity     string
	State        string
	VerifiedOnly bool
	Limit        int
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		reliability_score REAL NOT NULL DEFAULT 0.5,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		url TEXT NOT NULL UNIQUE,
		source_id INTEGER NOT NULL REFERENCES sources(id),
		state TEXT,
		city TEXT,
		crime_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		published_at DATETIME NOT NULL,
		discovered_at DATETIME NOT NULL,
		confidence_score REAL NOT NULL DEFAULT 0.0,
		is_verified INTEGER NOT NULL DEFAULT 0,
		is_duplicate INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_state_time ON incidents(state, published_at);
	CREATE INDEX IF NOT EXISTS idx_incidents_severity_time ON incidents(severity, published_at);
	CREATE INDEX IF NOT EXISTS idx_incidents_type_time ON incidents(crime_type, published_at);
	CREATE INDEX IF NOT EXISTS idx_incidents_discovered ON incidents(discovered_at);

	CREATE TABLE IF NOT EXISTS api_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		query TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		response_time_ms INTEGER NOT NULL,
		articles_found INTEGER NOT NULL DEFAULT 0,
		articles_processed INTEGER NOT NULL DEFAULT 0,
		errors TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_api_logs_created ON api_logs(created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// publisherDomains maps well-known publisher names to their domains.
// Unknown publishers fall back to a slugified "<name>.com".
var publisherDomains = map[string]string{
	"CNN":              "cnn.com",
	"Fox News":         "foxnews.com",
	"ABC News":         "abcnews.go.com",
	"CBS News":         "cbsnews.com",
	"NBC News":         "nbcnews.com",
	"Associated Press": "apnews.com",
	"Reuters":          "reuters.com",
	"USA Today":        "usatoday.com",
}

// domainForPublisher returns a heuristic domain for a publisher name.
func domainForPublisher(name string) string {
	if d, ok := publisherDomains[name]; ok {
		return d
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "") + ".com"
}

// FindOrCreateSource resolves a publisher name to its Source row, creating
// it with a default 0.5 reliability score on first sight. Insert-or-ignore
// followed by a select keeps concurrent runs from creating duplicate rows.
// Thread-safe: acquires write lock.
func (s *Store) FindOrCreateSource(name string) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO sources (name, domain, reliability_score, is_active)
		VALUES (?, ?, 0.5, 1)
	`, name, domainForPublisher(name))
	if err != nil {
		return Source{}, fmt.Errorf("insert source: %w", err)
	}

	return s.sourceByName(name)
}

// SourceByName returns the source with the given name.
// Thread-safe: acquires read lock.
func (s *Store) SourceByName(name string) (Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceByName(name)
}

// sourceByName looks up a source. Caller must hold s.mu.
func (s *Store) sourceByName(name string) (Source, error) {
	var src Source
	var active int
	err := s.db.QueryRow(`
		SELECT id, name, domain, reliability_score, is_active, created_at
		FROM sources WHERE name = ?
	`, name).Scan(&src.ID, &src.Name, &src.Domain, &src.Reliability, &active, &src.CreatedAt)
	if err != nil {
		return Source{}, fmt.Errorf("select source %q: %w", name, err)
	}
	src.Active = active != 0
	return src, nil
}

// ListSources returns all sources ordered by name.
// Thread-safe: acquires read lock.
func (s *Store) ListSources() ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, domain, reliability_score, is_active, created_at
		FROM sources ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var active int
		if err := rows.Scan(&src.ID, &src.Name, &src.Domain, &src.Reliability, &active, &src.CreatedAt); err != nil {
			return nil, err
		}
		src.Active = active != 0
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// HasIncidentURL reports whether an incident with this URL is already stored.
// Thread-safe: acquires read lock.
func (s *Store) HasIncidentURL(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM incidents WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertIncident stores a new incident and returns its id. A URL collision
// returns ErrDuplicateURL and writes nothing.
// Thread-safe: acquires write lock.
func (s *Store) InsertIncident(inc Incident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// INSERT OR IGNORE + RowsAffected distinguishes a duplicate URL from
	// a real failure without matching on driver error strings.
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO incidents (
			title, description, url, source_id, state, city,
			crime_type, severity, published_at, discovered_at,
			confidence_score, is_verified, is_duplicate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inc.Title, inc.Description, inc.URL, inc.SourceID, inc.State, inc.City,
		inc.CrimeType, inc.Severity, inc.PublishedAt, inc.DiscoveredAt,
		inc.Confidence, boolToInt(inc.Verified), boolToInt(inc.Duplicate),
	)
	if err != nil {
		return 0, fmt.Errorf("insert incident: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrDuplicateURL
	}
	return res.LastInsertId()
}

// ListIncidents returns incidents matching the filter, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ListIncidents(f IncidentFilter) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, title, description, url, source_id, state, city,
			crime_type, severity, published_at, discovered_at,
			confidence_score, is_verified, is_duplicate
		FROM incidents
		WHERE 1=1
	`
	var args []any

	if !f.Since.IsZero() {
		query += " AND published_at >= ?"
		args = append(args, f.Since)
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if f.State != "" {
		query += " AND state = ?"
		args = append(args, f.State)
	}
	if f.VerifiedOnly {
		query += " AND is_verified = 1"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY published_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var inc Incident
		var verified, duplicate int
		err := rows.Scan(
			&inc.ID, &inc.Title, &inc.Description, &inc.URL, &inc.SourceID,
			&inc.State, &inc.City, &inc.CrimeType, &inc.Severity,
			&inc.PublishedAt, &inc.DiscoveredAt, &inc.Confidence,
			&verified, &duplicate,
		)
		if err != nil {
			return nil, err
		}
		inc.Verified = verified != 0
		inc.Duplicate = duplicate != 0
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// CountIncidentsSince counts incidents discovered at or after t.
// Thread-safe: acquires read lock.
func (s *Store) CountIncidentsSince(t time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM incidents WHERE discovered_at >= ?", t).Scan(&n)
	return n, err
}

// SetIncidentVerified records a moderation decision on an incident.
// Thread-safe: acquires write lock.
func (s *Store) SetIncidentVerified(id int64, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE incidents SET is_verified = ? WHERE id = ?", boolToInt(verified), id)
	return err
}

// SetIncidentDuplicate flags an incident as a duplicate of another.
// Thread-safe: acquires write lock.
func (s *Store) SetIncidentDuplicate(id int64, duplicate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE incidents SET is_duplicate = ? WHERE id = ?", boolToInt(duplicate), id)
	return err
}

// InsertAPILog appends one audit row for an upstream fetch call.
// Thread-safe: acquires write lock.
func (s *Store) InsertAPILog(l APILog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO api_logs (
			endpoint, query, status_code, response_time_ms,
			articles_found, articles_processed, errors, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.Endpoint, l.Query, l.Status, l.ResponseTimeMS,
		l.ArticlesFound, l.ArticlesProcessed, l.Errors, created,
	)
	if err != nil {
		return fmt.Errorf("insert api log: %w", err)
	}
	return nil
}

// LatestAPILog returns the most recent audit row, or nil if none exist.
// Thread-safe: acquires read lock.
func (s *Store) LatestAPILog() (*APILog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var l APILog
	err := s.db.QueryRow(`
		SELECT id, endpoint, query, status_code, response_time_ms,
			articles_found, articles_processed, errors, created_at
		FROM api_logs ORDER BY id DESC LIMIT 1
	`).Scan(
		&l.ID, &l.Endpoint, &l.Query, &l.Status, &l.ResponseTimeMS,
		&l.ArticlesFound, &l.ArticlesProcessed, &l.Errors, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountAPILogs returns the number of audit rows.
// Thread-safe: acquires read lock.
func (s *Store) CountAPILogs() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM api_logs").Scan(&n)
	return n, err
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
