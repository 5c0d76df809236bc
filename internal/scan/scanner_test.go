package scan

import (
	"os"
	"path/filepath"
	"testing"
)

const sessionID = "aaaa1111-2222-3333-4444-555566667777"

func TestRootListsSessionFiles(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-Users-me-proj")
	if err := os.MkdirAll(filepath.Join(proj, "subagents"), 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(rel string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(root, rel), []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("-Users-me-proj/" + sessionID + ".jsonl")
	write("-Users-me-proj/notes.txt")
	write("-Users-me-proj/sessions-index.jsonl")
	write("-Users-me-proj/subagents/bbbb1111-2222-3333-4444-555566667777.jsonl")

	files, err := Root(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %+v, want only the session transcript", files)
	}
	fi := files[0]
	if fi.SessionID != sessionID {
		t.Errorf("SessionID = %q", fi.SessionID)
	}
	if fi.Project != "-Users-me-proj" {
		t.Errorf("Project = %q", fi.Project)
	}
	if fi.Size == 0 || fi.Mtime.IsZero() {
		t.Errorf("stat fields missing: %+v", fi)
	}
}

func TestRootMissingDir(t *testing.T) {
	files, err := Root(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if files != nil {
		t.Errorf("files = %v", files)
	}
}

func TestFindSession(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-Users-me-proj")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(proj, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fi, ok := FindSession(root, sessionID)
	if !ok {
		t.Fatal("session not found")
	}
	if fi.Path != path {
		t.Errorf("Path = %q", fi.Path)
	}

	if _, ok := FindSession(root, "missing-session"); ok {
		t.Error("found a session that does not exist")
	}
}
