// Package store owns the single-file SQLite index: session metadata, the
// FTS5 content table, per-session tool/agent usage, the topic timeline and
// per-file fingerprints.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS sessions (
    session_id       TEXT PRIMARY KEY,
    project          TEXT NOT NULL DEFAULT '',
    project_name     TEXT NOT NULL DEFAULT '',
    title            TEXT,
    title_display    TEXT,
    tags             TEXT,
    client           TEXT,
    file_path        TEXT NOT NULL,
    file_size        INTEGER NOT NULL DEFAULT 0,
    exchange_count   INTEGER NOT NULL DEFAULT 0,
    start_time       TEXT,
    end_time         TEXT,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    model            TEXT,
    has_compaction   INTEGER NOT NULL DEFAULT 0,
    skipped_lines    INTEGER NOT NULL DEFAULT 0,
    indexed_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_tools (
    session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    tool_name  TEXT NOT NULL,
    use_count  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, tool_name)
);

CREATE TABLE IF NOT EXISTS session_agents (
    session_id       TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    agent_name       TEXT NOT NULL,
    invocation_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, agent_name)
);

CREATE TABLE IF NOT EXISTS session_topics (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    topic           TEXT NOT NULL,
    captured_at     TEXT NOT NULL,
    exchange_number INTEGER,
    source          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_index (
    file_path   TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    indexed_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
CREATE INDEX IF NOT EXISTS idx_sessions_client  ON sessions(client);
CREATE INDEX IF NOT EXISTS idx_sessions_start   ON sessions(start_time);
CREATE INDEX IF NOT EXISTS idx_topics_session   ON session_topics(session_id);
CREATE INDEX IF NOT EXISTS idx_topics_source    ON session_topics(source);

CREATE VIRTUAL TABLE IF NOT EXISTS session_content USING fts5(
    session_id,
    content,
    tokenize='porter unicode61'
);
`

// schemaVersion is bumped whenever parsing or normalization changes in a
// way that requires a full re-index. Stale fingerprints are cleared so the
// driver sees every file as Unseen.
const schemaVersion = "1"

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)")
	s := &Store{db: db}
	s.migrateSchemaVersion()
	return s, nil
}

func (s *Store) migrateSchemaVersion() {
	var ver string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		s.db.Exec("DELETE FROM file_index")
		s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (s *Store) Close() error { return s.db.Close() }

// Raw exposes the underlying handle for the read-only query layers.
func (s *Store) Raw() *sql.DB { return s.db }

// Stats summarizes index contents for the stats and doctor commands.
type Stats struct {
	Sessions          int
	Topics            int
	DistinctTools     int
	DistinctAgents    int
	SessionsWithTopic int
	ContentRows       int
	EarliestStart     string
	LatestStart       string
}

func (s *Store) GetStats() (Stats, error) {
	var st Stats
	row := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM session_topics),
			(SELECT COUNT(DISTINCT tool_name) FROM session_tools),
			(SELECT COUNT(DISTINCT agent_name) FROM session_agents),
			(SELECT COUNT(DISTINCT session_id) FROM session_topics),
			(SELECT COUNT(*) FROM session_content)`)
	if err := row.Scan(&st.Sessions, &st.Topics, &st.DistinctTools,
		&st.DistinctAgents, &st.SessionsWithTopic, &st.ContentRows); err != nil {
		return st, err
	}

	var earliest, latest sql.NullString
	err := s.db.QueryRow(
		"SELECT MIN(start_time), MAX(start_time) FROM sessions WHERE start_time IS NOT NULL",
	).Scan(&earliest, &latest)
	if err != nil && err != sql.ErrNoRows {
		return st, err
	}
	if earliest.Valid && len(earliest.String) >= 10 {
		st.EarliestStart = earliest.String[:10]
	}
	if latest.Valid && len(latest.String) >= 10 {
		st.LatestStart = latest.String[:10]
	}
	return st, nil
}
