package exchange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lunar-hook/sessionidx/internal/parse"
)

func scanTranscript(t *testing.T, lines string) *Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	sess, err := ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	return sess
}

func TestScanGroupsExchanges(t *testing.T) {
	transcript := `{"type":"user","timestamp":"2026-03-01T10:00:00Z","message":{"role":"user","content":"first question here"}}
{"type":"assistant","timestamp":"2026-03-01T10:01:00Z","message":{"role":"assistant","model":"model-a","content":[{"type":"text","text":"answer one"}]}}
{"type":"user","timestamp":"2026-03-01T10:05:00Z","message":{"role":"user","content":"second question here"}}
{"type":"assistant","timestamp":"2026-03-01T10:06:00Z","message":{"role":"assistant","content":[{"type":"text","text":"answer two"}]}}
`
	sess := scanTranscript(t, transcript)

	if len(sess.Exchanges) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(sess.Exchanges))
	}
	for i, ex := range sess.Exchanges {
		if ex.Ordinal != i {
			t.Errorf("exchange %d: ordinal = %d", i, ex.Ordinal)
		}
	}
	if sess.Exchanges[0].User != "first question here" || sess.Exchanges[0].Assistant != "answer one" {
		t.Errorf("exchange 0 = %+v", sess.Exchanges[0])
	}
	if sess.Stats.ExchangeCount != 2 {
		t.Errorf("ExchangeCount = %d", sess.Stats.ExchangeCount)
	}
	if sess.Stats.Model != "model-a" {
		t.Errorf("Model = %q", sess.Stats.Model)
	}
	if sess.Stats.DurationMinutes() != 6 {
		t.Errorf("DurationMinutes = %d, want 6", sess.Stats.DurationMinutes())
	}
}

func TestScanTrailingExchangeClosed(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":"only question here"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"partial answer"}]}}
`
	sess := scanTranscript(t, transcript)
	if len(sess.Exchanges) != 1 {
		t.Fatalf("got %d exchanges, want 1 (trailing exchange closed at EOF)", len(sess.Exchanges))
	}
	if sess.Exchanges[0].Assistant != "partial answer" {
		t.Errorf("assistant = %q", sess.Exchanges[0].Assistant)
	}
}

func TestScanToolLinesInterleaved(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":"look at the config"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"checking"},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"config.go"}},{"type":"text","text":"found it"}]}}
`
	sess := scanTranscript(t, transcript)
	if len(sess.Exchanges) != 1 {
		t.Fatalf("got %d exchanges", len(sess.Exchanges))
	}
	want := "checking\n[Read: config.go]\nfound it"
	if sess.Exchanges[0].Assistant != want {
		t.Errorf("assistant = %q, want %q", sess.Exchanges[0].Assistant, want)
	}
	if sess.Stats.Tools["Read"] != 1 {
		t.Errorf("Tools = %v", sess.Stats.Tools)
	}
	tools := sess.Exchanges[0].Tools
	if len(tools) != 1 || tools[0].Name != "Read" || tools[0].Target != "config.go" {
		t.Errorf("invocations = %+v", tools)
	}
}

func TestScanOrphanToolResultDropped(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"stale"}]}}
{"type":"user","message":{"role":"user","content":"real question here"}}
`
	sess := scanTranscript(t, transcript)
	if len(sess.Exchanges) != 1 {
		t.Fatalf("got %d exchanges, want 1", len(sess.Exchanges))
	}
	if sess.Exchanges[0].User != "real question here" {
		t.Errorf("user = %q", sess.Exchanges[0].User)
	}
}

func TestScanSessionMetaAndSummaries(t *testing.T) {
	transcript := `{"type":"user","cwd":"/home/me/proj","message":{"role":"user","content":"hello over there"}}
{"type":"summary","summary":"Working on the indexer"}
{"type":"custom-title","customTitle":"first title"}
{"type":"custom-title","customTitle":"second title"}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Task","input":{"description":"dig in","subagent_type":"explorer"}}]}}
`
	sess := scanTranscript(t, transcript)
	st := sess.Stats
	if st.Cwd != "/home/me/proj" {
		t.Errorf("Cwd = %q", st.Cwd)
	}
	if !st.HasCompaction || len(st.Summaries) != 1 {
		t.Errorf("compaction = %v summaries = %v", st.HasCompaction, st.Summaries)
	}
	if st.CustomTitle != "second title" {
		t.Errorf("CustomTitle = %q, latest should win", st.CustomTitle)
	}
	if st.Agents["explorer"] != 1 {
		t.Errorf("Agents = %v", st.Agents)
	}
}

func TestScanShortPromptsExcluded(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":"ok"}}
{"type":"user","message":{"role":"user","content":"this prompt is long enough to keep"}}
`
	sess := scanTranscript(t, transcript)
	if len(sess.Exchanges) != 2 {
		t.Fatalf("got %d exchanges", len(sess.Exchanges))
	}
	if len(sess.Stats.UserPrompts) != 1 {
		t.Fatalf("UserPrompts = %v, short prompts should be excluded", sess.Stats.UserPrompts)
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		tc   parse.ToolCall
		want string
	}{
		{parse.ToolCall{Name: "Read", FilePath: "a/b.go"}, "[Read: a/b.go]"},
		{parse.ToolCall{Name: "Read"}, "[Read: ?]"},
		{parse.ToolCall{Name: "Write", FilePath: "out.txt"}, "[Write: out.txt]"},
		{parse.ToolCall{Name: "Bash", Command: "go test ./..."}, "[Bash: go test ./...]"},
		{parse.ToolCall{Name: "Grep", Pattern: "TODO"}, "[Grep: TODO]"},
		{parse.ToolCall{Name: "Glob", Pattern: "**/*.go"}, "[Glob: **/*.go]"},
		{parse.ToolCall{Name: "WebSearch", Query: "fts5 syntax"}, "[WebSearch: fts5 syntax]"},
		{parse.ToolCall{Name: "Task", Description: "scan deps", AgentType: "explorer"}, `[Task: "scan deps" → explorer]`},
		{parse.ToolCall{Name: "SomethingNew"}, "[SomethingNew]"},
	}
	for _, tt := range tests {
		if got := Collapse(tt.tc); got != tt.want {
			t.Errorf("Collapse(%s) = %q, want %q", tt.tc.Name, got, tt.want)
		}
	}
}

func TestCollapseClipsLongFields(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	got := Collapse(parse.ToolCall{Name: "Bash", Command: string(long)})
	want := "[Bash: " + string(long[:60]) + "]"
	if got != want {
		t.Errorf("got %q", got)
	}
}
