// Package exchange groups parsed transcript events into exchanges: one
// user turn plus all assistant activity up to the next user turn.
package exchange

import (
	"io"
	"strings"
	"time"

	"github.com/lunar-hook/sessionidx/internal/parse"
)

// Invocation is one tool call within an exchange. Agent is set when the
// tool delegated to a sub-agent.
type Invocation struct {
	Name   string
	Target string
	Agent  string
}

// Exchange pairs a user turn with the assistant activity that follows it.
// Assistant text may span several underlying turns; tool calls appear in
// it as collapsed one-liners, in original block order.
type Exchange struct {
	Ordinal   int
	Timestamp time.Time
	User      string
	Assistant string
	Tools     []Invocation
}

// Stats holds the per-session aggregates computed in one full scan.
type Stats struct {
	StartTime     time.Time
	EndTime       time.Time
	ExchangeCount int
	Tools         map[string]int
	Agents        map[string]int
	Model         string
	Cwd           string
	CustomTitle   string
	Summaries     []string
	HasCompaction bool
	UserPrompts   []string
	SkippedLines  int
}

// DurationMinutes is last event timestamp minus first, floored to minutes.
func (s Stats) DurationMinutes() int {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return int(s.EndTime.Sub(s.StartTime).Minutes())
}

// Session is the normalized form of one transcript.
type Session struct {
	Exchanges []Exchange
	Stats     Stats
}

// minPromptLen filters out trivial user messages ("ok", "yes") from the
// prompt list used for titles, client detection and the content index.
const minPromptLen = 10

// Scan consumes the reader and produces the normalized session. A new
// exchange opens on each user message; the trailing exchange is closed at
// end of stream even without a terminating user turn.
func Scan(r *parse.Reader) (*Session, error) {
	s := &Session{
		Stats: Stats{
			Tools:  make(map[string]int),
			Agents: make(map[string]int),
		},
	}

	var cur *Exchange
	var assistantParts []string

	closeCurrent := func() {
		if cur == nil {
			return
		}
		cur.Assistant = strings.Join(assistantParts, "\n")
		cur.Ordinal = len(s.Exchanges)
		s.Exchanges = append(s.Exchanges, *cur)
		cur = nil
		assistantParts = nil
	}

	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if !ev.Timestamp.IsZero() {
			if s.Stats.StartTime.IsZero() {
				s.Stats.StartTime = ev.Timestamp
			}
			s.Stats.EndTime = ev.Timestamp
		}

		switch ev.Kind {
		case parse.KindUserMessage:
			closeCurrent()
			cur = &Exchange{Timestamp: ev.Timestamp, User: ev.Text}
			if len(ev.Text) > minPromptLen {
				s.Stats.UserPrompts = append(s.Stats.UserPrompts, ev.Text)
			}

		case parse.KindAssistantMessage:
			if s.Stats.Model == "" && ev.Model != "" {
				s.Stats.Model = ev.Model
			}
			if cur != nil {
				assistantParts = append(assistantParts, ev.Text)
			}

		case parse.KindToolCall:
			s.Stats.Tools[ev.Tool.Name]++
			if cur != nil {
				assistantParts = append(assistantParts, Collapse(ev.Tool))
				cur.Tools = append(cur.Tools, Invocation{
					Name:   ev.Tool.Name,
					Target: target(ev.Tool),
					Agent:  ev.Tool.AgentType,
				})
			}

		case parse.KindAgentInvocation:
			s.Stats.Agents[ev.AgentName]++

		case parse.KindToolResult:
			// results carry no displayable content; an orphan result
			// (no prior matching call) is dropped the same way

		case parse.KindSummary:
			s.Stats.HasCompaction = true
			s.Stats.Summaries = append(s.Stats.Summaries, ev.Summary)

		case parse.KindSessionMeta:
			if v := ev.Meta["cwd"]; v != "" && s.Stats.Cwd == "" {
				s.Stats.Cwd = v
			}
			if v := ev.Meta["customTitle"]; v != "" {
				s.Stats.CustomTitle = v // latest wins
			}
		}
	}
	closeCurrent()

	s.Stats.ExchangeCount = len(s.Exchanges)
	s.Stats.SkippedLines = r.Skipped()
	return s, nil
}

// ScanFile opens, scans and closes one transcript file.
func ScanFile(path string) (*Session, error) {
	r, err := parse.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Scan(r)
}
