package topic

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lunar-hook/sessionidx/internal/config"
	"github.com/lunar-hook/sessionidx/internal/indexer"
	"github.com/lunar-hook/sessionidx/internal/scan"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// Hook events as delivered by the session lifecycle.
const (
	EventPrompt     = "UserPromptSubmit"
	EventPreCompact = "PreCompact"
	EventSessionEnd = "SessionEnd"
)

// Topic sources recorded in the timeline per trigger reason.
const (
	SourcePeriodic   = "hook_periodic"
	SourcePreCompact = "hook_precompact"
	SourceSessionEnd = "hook_session_end"
)

// captureInterval is how many exchanges pass between periodic captures.
const captureInterval = 10

// HandleHook dispatches one lifecycle event for a session. Unknown events
// are ignored so new hook types never break the caller.
func HandleHook(st *store.Store, cfg config.Config, event, sessionID string) error {
	fi, ok := scan.FindSession(cfg.ProjectsDir, sessionID)
	if !ok {
		return nil // session file not on disk yet, nothing to capture
	}

	switch event {
	case EventPrompt:
		return handlePeriodic(st, cfg, fi)
	case EventPreCompact:
		return capture(st, cfg, fi, SourcePreCompact, 5)
	case EventSessionEnd:
		if err := capture(st, cfg, fi, SourceSessionEnd, 5); err != nil {
			fmt.Fprintf(os.Stderr, "topic capture: %v\n", err)
		}
		// session end also refreshes the session's index entry
		return indexer.IndexFile(st, cfg, fi, true)
	default:
		return nil
	}
}

func handlePeriodic(st *store.Store, cfg config.Config, fi scan.FileInfo) error {
	count, err := userTurnCount(fi.Path)
	if err != nil || count < captureInterval {
		return err
	}

	state := loadState()
	if count-state[fi.SessionID] < captureInterval {
		return nil
	}
	if err := capture(st, cfg, fi, SourcePeriodic, 3); err != nil {
		return err
	}
	state[fi.SessionID] = count
	return saveState(state)
}

func capture(st *store.Store, cfg config.Config, fi scan.FileInfo, source string, recent int) error {
	messages, err := RecentUserMessages(fi.Path, recent)
	if err != nil {
		return err
	}
	t := Extract(messages)
	if t == "" {
		return nil
	}

	count, _ := userTurnCount(fi.Path)
	if err := writeTopicFile(cfg.TopicsDir, fi.SessionID, t); err != nil {
		return err
	}
	return st.AddTopic(fi.SessionID, t, source, count)
}

// userTurnCount counts user records without full decoding; cheap enough to
// run on every prompt hook.
func userTurnCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	count := 0
	for sc.Scan() {
		line := sc.Bytes()
		if bytes.Contains(line, []byte(`"type":"user"`)) || bytes.Contains(line, []byte(`"type": "user"`)) {
			count++
		}
	}
	return count, sc.Err()
}

// writeTopicFile writes the latest topic where the status line can read it.
func writeTopicFile(topicsDir, sessionID, t string) error {
	if err := os.MkdirAll(topicsDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(topicsDir, sessionID+".txt"), []byte(t), 0o644)
}

// per-session capture positions, so periodic capture fires every
// captureInterval exchanges rather than on every prompt
func statePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sessionidx", "topic-capture-state.json")
}

func loadState() map[string]int {
	state := make(map[string]int)
	p := statePath()
	if p == "" {
		return state
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return state
	}
	json.Unmarshal(data, &state)
	return state
}

func saveState(state map[string]int) error {
	p := statePath()
	if p == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// ClearState removes a finished session from the periodic-capture state.
func ClearState(sessionID string) error {
	state := loadState()
	if _, ok := state[sessionID]; !ok {
		return nil
	}
	delete(state, sessionID)
	return saveState(state)
}
