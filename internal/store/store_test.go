package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testRecord(id string) *SessionRecord {
	return &SessionRecord{
		SessionID:       id,
		Project:         "-Users-me-proj",
		ProjectName:     "me proj",
		Title:           "fix the indexer",
		TitleDisplay:    "fix the indexer",
		FilePath:        "/tmp/" + id + ".jsonl",
		FileSize:        1024,
		ExchangeCount:   3,
		StartTime:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		Model:           "model-a",
		Tools:           map[string]int{"Read": 5, "Bash": 2},
		Agents:          map[string]int{"explorer": 1},
		Content:         "please fix the indexer race condition",
	}
}

func count(t *testing.T, st *Store, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := st.Raw().QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestReplaceSessionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	if err := st.ReplaceSession(testRecord("aaaa1111-0000-0000-0000-000000000001")); err != nil {
		t.Fatal(err)
	}

	row, err := st.SessionByID("aaaa1111-0000-0000-0000-000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil {
		t.Fatal("session not found after replace")
	}
	if row.Title != "fix the indexer" || row.ExchangeCount != 3 || row.DurationMinutes != 30 {
		t.Errorf("row = %+v", row)
	}
	if row.StartTime != "2026-03-01T10:00:00Z" {
		t.Errorf("StartTime = %q", row.StartTime)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_tools WHERE session_id = ?", row.SessionID); n != 2 {
		t.Errorf("tool rows = %d", n)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_content WHERE session_id = ?", row.SessionID); n != 1 {
		t.Errorf("content rows = %d", n)
	}
}

func TestReplaceSessionIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	id := "aaaa1111-0000-0000-0000-000000000002"
	rec := testRecord(id)
	for i := 0; i < 3; i++ {
		if err := st.ReplaceSession(rec); err != nil {
			t.Fatal(err)
		}
	}
	if n := count(t, st, "SELECT COUNT(*) FROM sessions"); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_tools"); n != 2 {
		t.Errorf("tool rows = %d, want 2", n)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_content"); n != 1 {
		t.Errorf("content rows = %d, want 1", n)
	}
}

func TestReplaceSessionShrinkingContent(t *testing.T) {
	st := openTestStore(t)
	id := "aaaa1111-0000-0000-0000-000000000003"
	if err := st.ReplaceSession(testRecord(id)); err != nil {
		t.Fatal(err)
	}

	rec := testRecord(id)
	rec.Content = ""
	rec.Tools = nil
	if err := st.ReplaceSession(rec); err != nil {
		t.Fatal(err)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_content WHERE session_id = ?", id); n != 0 {
		t.Errorf("content rows = %d, stale FTS row survived", n)
	}
	if n := count(t, st, "SELECT COUNT(*) FROM session_tools WHERE session_id = ?", id); n != 0 {
		t.Errorf("tool rows = %d", n)
	}
}

func TestReplaceSessionPreservesHookTopics(t *testing.T) {
	st := openTestStore(t)
	id := "aaaa1111-0000-0000-0000-000000000004"
	if err := st.ReplaceSession(testRecord(id)); err != nil {
		t.Fatal(err)
	}
	if err := st.AddTopic(id, "debugging the race", "hook_periodic", 10); err != nil {
		t.Fatal(err)
	}

	rec := testRecord(id)
	rec.Topics = []TopicEntry{
		{Topic: "summary topic", Source: "compaction_summary", CapturedAt: "2026-03-01T10:30:00Z"},
	}
	if err := st.ReplaceSession(rec); err != nil {
		t.Fatal(err)
	}
	// run again: summary topic must not duplicate
	if err := st.ReplaceSession(rec); err != nil {
		t.Fatal(err)
	}

	topics, err := st.Topics(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 {
		t.Fatalf("topics = %+v, want hook topic + one summary topic", topics)
	}
}

func TestDeleteSessionRemovesEverything(t *testing.T) {
	st := openTestStore(t)
	id := "aaaa1111-0000-0000-0000-000000000005"
	rec := testRecord(id)
	if err := st.ReplaceSession(rec); err != nil {
		t.Fatal(err)
	}
	if err := st.SetFingerprint(rec.FilePath, id, "fp1"); err != nil {
		t.Fatal(err)
	}
	if err := st.AddTopic(id, "some topic", "hook_periodic", 1); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteSession(id); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"sessions", "session_tools", "session_agents",
		"session_topics", "session_content", "file_index"} {
		if n := count(t, st, "SELECT COUNT(*) FROM "+table); n != 0 {
			t.Errorf("%s has %d rows after delete", table, n)
		}
	}
}

func TestFingerprintLifecycle(t *testing.T) {
	st := openTestStore(t)

	_, ok, err := st.Fingerprint("/tmp/never-indexed.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown path reported as indexed")
	}

	if err := st.SetFingerprint("/tmp/a.jsonl", "sess-1", "fp1"); err != nil {
		t.Fatal(err)
	}
	fp, ok, err := st.Fingerprint("/tmp/a.jsonl")
	if err != nil || !ok || fp != "fp1" {
		t.Fatalf("fp = %q ok = %v err = %v", fp, ok, err)
	}

	if err := st.SetFingerprint("/tmp/a.jsonl", "sess-1", "fp2"); err != nil {
		t.Fatal(err)
	}
	fp, _, _ = st.Fingerprint("/tmp/a.jsonl")
	if fp != "fp2" {
		t.Errorf("fp = %q after update", fp)
	}

	files, err := st.IndexedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if files["/tmp/a.jsonl"] != "sess-1" {
		t.Errorf("IndexedFiles = %v", files)
	}
}

func TestResolveSessionIDPrefix(t *testing.T) {
	st := openTestStore(t)
	id := "bbbb2222-0000-0000-0000-000000000001"
	if err := st.ReplaceSession(testRecord(id)); err != nil {
		t.Fatal(err)
	}

	got, err := st.ResolveSessionID("bbbb2222")
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("resolved %q, want %q", got, id)
	}

	// unknown prefix passes through for a uniform not-found upstream
	got, err = st.ResolveSessionID("ffff")
	if err != nil || got != "ffff" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestGetStats(t *testing.T) {
	st := openTestStore(t)
	if err := st.ReplaceSession(testRecord("cccc3333-0000-0000-0000-000000000001")); err != nil {
		t.Fatal(err)
	}
	if err := st.AddTopic("cccc3333-0000-0000-0000-000000000001", "t", "hook_periodic", 1); err != nil {
		t.Fatal(err)
	}

	s, err := st.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if s.Sessions != 1 || s.Topics != 1 || s.DistinctTools != 2 || s.ContentRows != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.EarliestStart != "2026-03-01" {
		t.Errorf("EarliestStart = %q", s.EarliestStart)
	}
}

func TestFTSMatchesStoredContent(t *testing.T) {
	st := openTestStore(t)
	if err := st.ReplaceSession(testRecord("dddd4444-0000-0000-0000-000000000001")); err != nil {
		t.Fatal(err)
	}

	var id string
	err := st.Raw().QueryRow(
		"SELECT session_id FROM session_content WHERE session_content MATCH ?", `"indexer"`,
	).Scan(&id)
	if err != nil {
		t.Fatal(err)
	}
	if id != "dddd4444-0000-0000-0000-000000000001" {
		t.Errorf("matched %q", id)
	}
}
