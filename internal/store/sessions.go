package store

import (
	"database/sql"
	"fmt"
	"time"
)

// timeFormat matches the transcript timestamps so string comparison in SQL
// orders chronologically.
const timeFormat = "2006-01-02T15:04:05Z"

// TopicEntry is one appended topic-timeline row.
type TopicEntry struct {
	Topic          string
	Source         string
	CapturedAt     string
	ExchangeNumber int
}

// SessionRecord is everything ReplaceSession writes for one session.
type SessionRecord struct {
	SessionID       string
	Project         string
	ProjectName     string
	Title           string
	TitleDisplay    string
	Tags            string
	Client          string
	FilePath        string
	FileSize        int64
	ExchangeCount   int
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Model           string
	HasCompaction   bool
	SkippedLines    int
	Tools           map[string]int
	Agents          map[string]int
	Content         string
	Topics          []TopicEntry
}

// ReplaceSession fully replaces a session's stored rows in one
// transaction: dependent tool/agent/content rows are deleted before the
// new rows go in, since exchange count or ordering may have changed.
// Hook-captured topic rows are preserved; summary-derived topics are
// inserted only if not already present (topics are append-only).
func (s *Store) ReplaceSession(rec *SessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)

	_, err = tx.Exec(`
		INSERT INTO sessions (
			session_id, project, project_name, title, title_display, tags,
			client, file_path, file_size, exchange_count, start_time, end_time,
			duration_minutes, model, has_compaction, skipped_lines, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			project=excluded.project, project_name=excluded.project_name,
			title=excluded.title, title_display=excluded.title_display,
			tags=excluded.tags, client=excluded.client,
			file_path=excluded.file_path, file_size=excluded.file_size,
			exchange_count=excluded.exchange_count,
			start_time=excluded.start_time, end_time=excluded.end_time,
			duration_minutes=excluded.duration_minutes, model=excluded.model,
			has_compaction=excluded.has_compaction,
			skipped_lines=excluded.skipped_lines, indexed_at=excluded.indexed_at`,
		rec.SessionID, rec.Project, rec.ProjectName,
		nullable(rec.Title), nullable(rec.TitleDisplay), nullable(rec.Tags),
		nullable(rec.Client), rec.FilePath, rec.FileSize, rec.ExchangeCount,
		formatTime(rec.StartTime), formatTime(rec.EndTime),
		rec.DurationMinutes, nullable(rec.Model), boolInt(rec.HasCompaction),
		rec.SkippedLines, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM session_tools WHERE session_id = ?", rec.SessionID); err != nil {
		return err
	}
	for tool, count := range rec.Tools {
		if _, err := tx.Exec(
			"INSERT INTO session_tools (session_id, tool_name, use_count) VALUES (?, ?, ?)",
			rec.SessionID, tool, count,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM session_agents WHERE session_id = ?", rec.SessionID); err != nil {
		return err
	}
	for agent, count := range rec.Agents {
		if _, err := tx.Exec(
			"INSERT INTO session_agents (session_id, agent_name, invocation_count) VALUES (?, ?, ?)",
			rec.SessionID, agent, count,
		); err != nil {
			return err
		}
	}

	// FTS content replaced inside the same transaction keeps the index
	// referentially consistent with the session row
	if _, err := tx.Exec("DELETE FROM session_content WHERE session_id = ?", rec.SessionID); err != nil {
		return err
	}
	if rec.Content != "" {
		if _, err := tx.Exec(
			"INSERT INTO session_content (session_id, content) VALUES (?, ?)",
			rec.SessionID, rec.Content,
		); err != nil {
			return err
		}
	}

	for _, t := range rec.Topics {
		var exists int
		err := tx.QueryRow(
			"SELECT 1 FROM session_topics WHERE session_id = ? AND topic = ? AND source = ?",
			rec.SessionID, t.Topic, t.Source,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			if _, err := tx.Exec(
				"INSERT INTO session_topics (session_id, topic, captured_at, exchange_number, source) VALUES (?, ?, ?, ?, ?)",
				rec.SessionID, t.Topic, t.CapturedAt, nullInt(t.ExchangeNumber), t.Source,
			); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session and every dependent row, including its
// content index entry and fingerprint.
func (s *Store) DeleteSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM session_tools WHERE session_id = ?",
		"DELETE FROM session_agents WHERE session_id = ?",
		"DELETE FROM session_topics WHERE session_id = ?",
		"DELETE FROM session_content WHERE session_id = ?",
		"DELETE FROM file_index WHERE session_id = ?",
		"DELETE FROM sessions WHERE session_id = ?",
	} {
		if _, err := tx.Exec(q, sessionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Fingerprint returns the fingerprint recorded at last successful index of
// the file, or ok=false when the file has never been indexed.
func (s *Store) Fingerprint(filePath string) (string, bool, error) {
	var fp string
	err := s.db.QueryRow(
		"SELECT fingerprint FROM file_index WHERE file_path = ?", filePath,
	).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return fp, true, nil
}

// SetFingerprint records the fingerprint in its own transaction, called
// only after the session rows are committed. A crash in between leaves the
// fingerprint stale, forcing a safe re-index.
func (s *Store) SetFingerprint(filePath, sessionID, fingerprint string) error {
	_, err := s.db.Exec(`
		INSERT INTO file_index (file_path, session_id, fingerprint, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			session_id=excluded.session_id, fingerprint=excluded.fingerprint,
			indexed_at=excluded.indexed_at`,
		filePath, sessionID, fingerprint, time.Now().UTC().Format(timeFormat))
	return err
}

// IndexedFiles maps every indexed file path to its session ID, used by the
// driver to detect deleted source files.
func (s *Store) IndexedFiles() (map[string]string, error) {
	rows, err := s.db.Query("SELECT file_path, session_id FROM file_index")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make(map[string]string)
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		files[path] = id
	}
	return files, rows.Err()
}

// SessionRow is the read shape for one sessions row.
type SessionRow struct {
	SessionID       string
	Project         string
	ProjectName     string
	Title           string
	TitleDisplay    string
	Tags            string
	Client          string
	FilePath        string
	ExchangeCount   int
	StartTime       string
	EndTime         string
	DurationMinutes int
	Model           string
	HasCompaction   bool
}

const sessionCols = `session_id, project, project_name,
	COALESCE(title, ''), COALESCE(title_display, ''), COALESCE(tags, ''),
	COALESCE(client, ''), file_path, exchange_count,
	COALESCE(start_time, ''), COALESCE(end_time, ''), duration_minutes,
	COALESCE(model, ''), has_compaction`

func scanSessionRow(row *sql.Row) (*SessionRow, error) {
	var r SessionRow
	var compaction int
	err := row.Scan(&r.SessionID, &r.Project, &r.ProjectName, &r.Title,
		&r.TitleDisplay, &r.Tags, &r.Client, &r.FilePath, &r.ExchangeCount,
		&r.StartTime, &r.EndTime, &r.DurationMinutes, &r.Model, &compaction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.HasCompaction = compaction != 0
	return &r, nil
}

// SessionByID fetches one session; a prefix shorter than a full ID is
// resolved against the table first.
func (s *Store) SessionByID(id string) (*SessionRow, error) {
	resolved, err := s.ResolveSessionID(id)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow("SELECT "+sessionCols+" FROM sessions WHERE session_id = ?", resolved)
	return scanSessionRow(row)
}

// ResolveSessionID expands a session ID prefix to the full stored ID. Full
// IDs pass through untouched; an unknown prefix returns itself so the
// caller reports a uniform not-found.
func (s *Store) ResolveSessionID(prefix string) (string, error) {
	if len(prefix) >= 36 {
		return prefix, nil
	}
	var id string
	err := s.db.QueryRow(
		"SELECT session_id FROM sessions WHERE session_id LIKE ? LIMIT 1", prefix+"%",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return prefix, nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// TopicRow is one topic-timeline entry as stored.
type TopicRow struct {
	Topic          string
	CapturedAt     string
	ExchangeNumber int
	Source         string
}

// Topics returns the append-only topic timeline in capture order.
func (s *Store) Topics(sessionID string) ([]TopicRow, error) {
	rows, err := s.db.Query(`
		SELECT topic, captured_at, COALESCE(exchange_number, 0), source
		FROM session_topics WHERE session_id = ? ORDER BY captured_at, id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []TopicRow
	for rows.Next() {
		var t TopicRow
		if err := rows.Scan(&t.Topic, &t.CapturedAt, &t.ExchangeNumber, &t.Source); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// AddTopic appends one topic-timeline entry. Entries are never mutated
// after creation.
func (s *Store) AddTopic(sessionID, topic, source string, exchangeNumber int) error {
	_, err := s.db.Exec(
		"INSERT INTO session_topics (session_id, topic, captured_at, exchange_number, source) VALUES (?, ?, ?, ?, ?)",
		sessionID, topic, time.Now().UTC().Format(timeFormat), nullInt(exchangeNumber), source)
	return err
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
