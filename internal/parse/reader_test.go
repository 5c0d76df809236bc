package parse

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTranscript(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func TestReaderDecodesKinds(t *testing.T) {
	transcript := `{"type":"summary","summary":"Fix the flaky test"}
{"type":"user","timestamp":"2026-03-01T10:00:00Z","cwd":"/home/me/proj","message":{"role":"user","content":"please fix the test"}}
{"type":"assistant","message":{"role":"assistant","model":"model-a","content":[{"type":"text","text":"looking"},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"main.go"}}]}}
{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1"}]}}
{"type":"custom-title","customTitle":">>> debugging"}
`
	r, err := Open(writeTranscript(t, transcript))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	events := readAll(t, r)
	wantKinds := []Kind{KindSummary, KindSessionMeta, KindUserMessage,
		KindAssistantMessage, KindToolCall, KindToolResult, KindSessionMeta}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantKinds), events)
	}
	for i, want := range wantKinds {
		if events[i].Kind != want {
			t.Errorf("event %d: kind = %s, want %s", i, events[i].Kind, want)
		}
	}

	if events[0].Summary != "Fix the flaky test" {
		t.Errorf("summary = %q", events[0].Summary)
	}
	if events[1].Meta["cwd"] != "/home/me/proj" {
		t.Errorf("cwd = %q", events[1].Meta["cwd"])
	}
	if events[2].Text != "please fix the test" {
		t.Errorf("user text = %q", events[2].Text)
	}
	if events[3].Model != "model-a" {
		t.Errorf("model = %q", events[3].Model)
	}
	if events[4].Tool.Name != "Read" || events[4].Tool.FilePath != "main.go" {
		t.Errorf("tool call = %+v", events[4].Tool)
	}
	if events[5].ToolRef != "t1" {
		t.Errorf("tool ref = %q", events[5].ToolRef)
	}
	if events[6].Meta["customTitle"] != ">>> debugging" {
		t.Errorf("custom title = %q", events[6].Meta["customTitle"])
	}
}

func TestReaderAssistantBlockOrder(t *testing.T) {
	transcript := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"first"},{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}},{"type":"text","text":"second"}]}}
`
	r, err := Open(writeTranscript(t, transcript))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	events := readAll(t, r)
	wantKinds := []Kind{KindAssistantMessage, KindToolCall, KindAssistantMessage}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	for i, want := range wantKinds {
		if events[i].Kind != want {
			t.Errorf("event %d: kind = %s, want %s", i, events[i].Kind, want)
		}
	}
	if events[0].Text != "first" || events[2].Text != "second" {
		t.Errorf("text order wrong: %q, %q", events[0].Text, events[2].Text)
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":"hello there"}}
this is not json at all
{"type":"user","message":{"role":"user","content":"still works"}}
`
	r, err := Open(writeTranscript(t, transcript))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if r.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", r.Skipped())
	}
}

func TestReaderAgentInvocation(t *testing.T) {
	transcript := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Task","input":{"description":"explore the codebase","subagent_type":"explorer"}}]}}
`
	r, err := Open(writeTranscript(t, transcript))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want tool call + agent invocation", len(events))
	}
	if events[0].Kind != KindToolCall || events[1].Kind != KindAgentInvocation {
		t.Fatalf("kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[1].AgentName != "explorer" || events[1].AgentDescription != "explore the codebase" {
		t.Errorf("agent = %q desc = %q", events[1].AgentName, events[1].AgentDescription)
	}
}

func TestReaderMetaUserIsOpaque(t *testing.T) {
	transcript := `{"type":"user","isMeta":true,"message":{"role":"user","content":"injected context"}}
{"type":"unknown-record-type"}
`
	r, err := Open(writeTranscript(t, transcript))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Kind != KindUnknown {
			t.Errorf("event %d: kind = %s, want unknown", i, ev.Kind)
		}
	}
	if r.Skipped() != 0 {
		t.Errorf("skipped = %d, unknown types are not malformed", r.Skipped())
	}
}

func TestReaderRestartable(t *testing.T) {
	transcript := `{"type":"user","message":{"role":"user","content":"same every time"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"yes"}]}}
`
	path := writeTranscript(t, transcript)

	read := func() []Event {
		r, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()
		return readAll(t, r)
	}

	first, second := read(), read()
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Text != second[i].Text {
			t.Errorf("event %d differs between runs", i)
		}
	}
}

func TestParseTimestampFormats(t *testing.T) {
	for _, s := range []string{
		"2026-03-01T10:00:00Z",
		"2026-03-01T10:00:00.123456Z",
		"2026-03-01T10:00:00",
	} {
		if parseTimestamp(s).IsZero() {
			t.Errorf("parseTimestamp(%q) is zero", s)
		}
	}
	if !parseTimestamp("not a time").IsZero() {
		t.Error("garbage timestamp should be zero")
	}
}
