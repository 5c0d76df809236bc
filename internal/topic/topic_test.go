package topic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractFirstSentence(t *testing.T) {
	got := Extract([]string{"help me debug the watcher. It keeps firing twice."})
	if got != "Help me debug the watcher" {
		t.Errorf("got %q", got)
	}
}

func TestExtractCapitalizes(t *testing.T) {
	got := Extract([]string{"rework the prune pass please"})
	if got != "Rework the prune pass please" {
		t.Errorf("got %q", got)
	}
}

func TestExtractStripsMarkup(t *testing.T) {
	msg := "Fix the **bold** [link](https://example.com) and `code` issue in the parser"
	got := Extract([]string{msg})
	if strings.ContainsAny(got, "*[]`") {
		t.Errorf("markup survived: %q", got)
	}
	if !strings.Contains(got, "link") {
		t.Errorf("link text lost: %q", got)
	}
}

func TestExtractClauseFallbackForLongSentence(t *testing.T) {
	long := "Refactor the entire indexing pipeline so the fingerprint logic, which is currently scattered"
	got := Extract([]string{long})
	if len(got) > 60 {
		t.Errorf("topic too long (%d): %q", len(got), got)
	}
}

func TestExtractFallsBackToEarlierMessage(t *testing.T) {
	got := Extract([]string{"Investigate the slow startup time", "ok"})
	if got != "Investigate the slow startup time" {
		t.Errorf("got %q", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := Extract(nil); got != "" {
		t.Errorf("got %q", got)
	}
	if got := Extract([]string{"ok"}); got != "" {
		t.Errorf("got %q, trivial message should yield nothing", got)
	}
}

func TestRecentUserMessagesSkipsNoise(t *testing.T) {
	lines := []string{
		userLine("yes"),
		userLine("<system-reminder>injected tooling content</system-reminder>"),
		userLine("debug the fingerprint comparison logic"),
		`{"type":"assistant","message":{"content":[{"type":"text","text":"done"}]}}`,
		userLine("now look at the watcher debounce"),
	}
	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	msgs, err := RecentUserMessages(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"debug the fingerprint comparison logic",
		"now look at the watcher debounce",
	}
	if len(msgs) != len(want) {
		t.Fatalf("msgs = %v", msgs)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("msgs[%d] = %q, want %q (chronological order)", i, msgs[i], want[i])
		}
	}
}

func TestRecentUserMessagesLimit(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, userLine(fmt.Sprintf("substantive message number %d", i)))
	}
	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	msgs, err := RecentUserMessages(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[2] != "substantive message number 9" {
		t.Errorf("last = %q, want the newest message last", msgs[2])
	}
}

func userLine(text string) string {
	return fmt.Sprintf(`{"type":"user","message":{"content":%q}}`, text)
}
