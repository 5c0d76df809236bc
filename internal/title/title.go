// Package title derives a human-readable session title from session
// metadata, compaction summaries, or early user messages.
package title

import (
	"encoding/json"
	"strings"
)

// maxLen is the display length titles are truncated to.
const maxLen = 80

// maxCandidates bounds how many user messages are considered before the
// chain gives up.
const maxCandidates = 5

// Input carries everything the fallback chain may draw on.
type Input struct {
	CustomTitle string
	Summaries   []string
	UserPrompts []string
}

// Result is the inferred title. All fields empty means inference exhausted
// every strategy; that is not an error.
type Result struct {
	Title   string
	Display string
	Tags    string
}

// strategy is one step of the chain: extract returns ok=false to pass to
// the next step. Steps are tried in slice order, first success wins.
type strategy struct {
	name    string
	extract func(Input) (Result, bool)
}

var chain = []strategy{
	{"custom-title", fromCustomTitle},
	{"summary", fromSummary},
	{"first-prompt", fromPrompts},
}

// Infer runs the fallback chain. Malformed candidates are skipped, never
// fatal.
func Infer(in Input) Result {
	for _, s := range chain {
		if r, ok := s.extract(in); ok {
			return r
		}
	}
	return Result{}
}

// fromCustomTitle handles explicitly set titles. The ">>> NAME ...... [tags]"
// convention yields a separate short title and tag list; anything else is
// taken verbatim.
func fromCustomTitle(in Input) (Result, bool) {
	raw := strings.TrimSpace(in.CustomTitle)
	if raw == "" {
		return Result{}, false
	}
	r := Result{Title: raw, Display: raw}
	if strings.HasPrefix(raw, ">>>") {
		parts := strings.Split(raw, "......")
		r.Title = strings.TrimSpace(strings.TrimPrefix(parts[0], ">>>"))
		if len(parts) > 1 {
			tag := strings.TrimSpace(parts[len(parts)-1])
			tag = strings.TrimSpace(strings.Trim(tag, "[]<>"))
			r.Tags = tag
		}
	}
	return r, true
}

func fromSummary(in Input) (Result, bool) {
	for _, s := range in.Summaries {
		clean := CleanSummary(s)
		if clean == "" {
			continue
		}
		t := Truncate(clean)
		return Result{Title: t, Display: t}, true
	}
	return Result{}, false
}

// skipPrefixes mark first lines that make bad auto-titles: markdown
// headers, agent preambles and hook-injected caveats.
var skipPrefixes = []string{
	"#",
	"You are",
	"Caveat:",
	"Explore the",
}

func fromPrompts(in Input) (Result, bool) {
	prompts := in.UserPrompts
	if len(prompts) > maxCandidates {
		prompts = prompts[:maxCandidates]
	}
	for _, p := range prompts {
		line, _, _ := strings.Cut(strings.TrimSpace(p), "\n")
		line = strings.TrimSpace(line)
		if len(line) <= 10 {
			continue
		}
		if hasAnyPrefix(line, skipPrefixes) {
			continue
		}
		t := Truncate(line)
		return Result{Title: t, Display: t}, true
	}
	return Result{}, false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// CleanSummary recovers a plain title from a summary payload. Compaction
// markers sometimes carry structured JSON; a title or summary field inside
// it wins over the raw text. Malformed payloads fall back to the raw text.
func CleanSummary(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	var payload struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return trimmed
	}
	if payload.Title != "" {
		return payload.Title
	}
	if payload.Summary != "" {
		return payload.Summary
	}
	return trimmed
}

// Truncate shortens s to the display length, marking the cut with an
// ellipsis.
func Truncate(s string) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
