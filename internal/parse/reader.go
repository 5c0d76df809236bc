package parse

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

type record struct {
	Type        string          `json:"type"`
	IsMeta      bool            `json:"isMeta"`
	Timestamp   string          `json:"timestamp"`
	Cwd         string          `json:"cwd"`
	Message     json.RawMessage `json:"message"`
	Summary     string          `json:"summary"`
	CustomTitle string          `json:"customTitle"`
}

type message struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	ToolUseID string          `json:"tool_use_id"`
	Input     json.RawMessage `json:"input"`
}

type toolInput struct {
	FilePath    string `json:"file_path"`
	Command     string `json:"command"`
	Pattern     string `json:"pattern"`
	URL         string `json:"url"`
	Query       string `json:"query"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	SubagentType string `json:"subagent_type"`
	OldString   string `json:"old_string"`
}

// Reader decodes one transcript file into a stream of typed events.
// A line that fails to decode is skipped and counted, never fatal.
// The stream is restartable (Open the same file again), not resumable.
type Reader struct {
	f       *os.File
	sc      *bufio.Scanner
	line    int
	skipped int
	queue   []Event
	sawCwd  bool
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{f: f, sc: sc}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// Skipped reports how many lines failed to decode so far.
func (r *Reader) Skipped() int { return r.skipped }

// Next returns the next event in file order, or io.EOF at end of stream.
func (r *Reader) Next() (Event, error) {
	for {
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			return ev, nil
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return Event{}, err
			}
			return Event{}, io.EOF
		}
		r.line++
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			r.skipped++
			continue
		}
		r.decode(rec)
	}
}

func (r *Reader) decode(rec record) {
	ts := parseTimestamp(rec.Timestamp)

	if rec.Cwd != "" && !r.sawCwd {
		r.sawCwd = true
		r.push(Event{Kind: KindSessionMeta, Timestamp: ts, Meta: map[string]string{"cwd": rec.Cwd}})
	}

	switch rec.Type {
	case "summary":
		if rec.Summary != "" {
			r.push(Event{Kind: KindSummary, Timestamp: ts, Summary: rec.Summary})
		}
	case "custom-title":
		r.push(Event{Kind: KindSessionMeta, Timestamp: ts, Meta: map[string]string{"customTitle": rec.CustomTitle}})
	case "user":
		if rec.IsMeta {
			r.push(Event{Kind: KindUnknown, Timestamp: ts})
			return
		}
		r.decodeUser(rec, ts)
	case "assistant":
		r.decodeAssistant(rec, ts)
	default:
		// unknown record types stay opaque for downstream stages
		r.push(Event{Kind: KindUnknown, Timestamp: ts})
	}
}

func (r *Reader) decodeUser(rec record, ts time.Time) {
	var msg message
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		r.skipped++
		return
	}

	// content is either a plain string or a block list
	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		r.push(Event{Kind: KindUserMessage, Timestamp: ts, Line: r.line, Text: strings.TrimSpace(s)})
		return
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		r.skipped++
		return
	}
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		case "tool_result":
			r.push(Event{Kind: KindToolResult, Timestamp: ts, Line: r.line, ToolRef: b.ToolUseID})
		}
	}
	if text := strings.TrimSpace(strings.Join(parts, " ")); text != "" {
		r.push(Event{Kind: KindUserMessage, Timestamp: ts, Line: r.line, Text: text})
	}
}

func (r *Reader) decodeAssistant(rec record, ts time.Time) {
	var msg message
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		r.skipped++
		return
	}

	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		r.push(Event{Kind: KindAssistantMessage, Timestamp: ts, Line: r.line, Text: strings.TrimSpace(s), Model: msg.Model})
		return
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		r.skipped++
		return
	}
	// events are emitted in block order so exchanges preserve the
	// interleaving of prose and tool calls
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if text := strings.TrimSpace(b.Text); text != "" && text != "(no content)" {
				r.push(Event{Kind: KindAssistantMessage, Timestamp: ts, Line: r.line, Text: text, Model: msg.Model})
			}
		case "tool_use":
			var in toolInput
			json.Unmarshal(b.Input, &in)
			tc := ToolCall{
				ID:          b.ID,
				Name:        b.Name,
				FilePath:    in.FilePath,
				Command:     in.Command,
				Pattern:     in.Pattern,
				URL:         in.URL,
				Query:       in.Query,
				Description: in.Description,
				AgentType:   in.SubagentType,
				OldString:   in.OldString,
			}
			r.push(Event{Kind: KindToolCall, Timestamp: ts, Line: r.line, Tool: tc})
			if b.Name == "Task" && in.SubagentType != "" {
				desc := in.Description
				if desc == "" {
					desc = in.Prompt
				}
				r.push(Event{Kind: KindAgentInvocation, Timestamp: ts, Line: r.line,
					AgentName: in.SubagentType, AgentDescription: desc})
			}
		}
	}
}

func (r *Reader) push(ev Event) {
	if ev.Line == 0 {
		ev.Line = r.line
	}
	r.queue = append(r.queue, ev)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
