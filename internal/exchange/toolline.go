package exchange

import (
	"fmt"

	"github.com/lunar-hook/sessionidx/internal/parse"
)

// toolKind is the closed set of collapse variants. New tools get an
// explicit case here rather than ad-hoc string matching at call sites.
type toolKind int

const (
	toolOther toolKind = iota
	toolRead
	toolEdit
	toolWrite
	toolShell
	toolGrep
	toolGlob
	toolWebFetch
	toolWebSearch
	toolAgent
)

func kindOf(name string) toolKind {
	switch name {
	case "Read":
		return toolRead
	case "Edit":
		return toolEdit
	case "Write":
		return toolWrite
	case "Bash":
		return toolShell
	case "Grep":
		return toolGrep
	case "Glob":
		return toolGlob
	case "WebFetch":
		return toolWebFetch
	case "WebSearch":
		return toolWebSearch
	case "Task":
		return toolAgent
	default:
		return toolOther
	}
}

// Collapse reduces a tool call to a single descriptive line.
func Collapse(tc parse.ToolCall) string {
	switch kindOf(tc.Name) {
	case toolRead:
		return fmt.Sprintf("[Read: %s]", orUnknown(tc.FilePath))
	case toolEdit:
		return fmt.Sprintf("[Edit: %s (%s...)]", orUnknown(tc.FilePath), clip(tc.OldString, 40))
	case toolWrite:
		return fmt.Sprintf("[Write: %s]", orUnknown(tc.FilePath))
	case toolShell:
		return fmt.Sprintf("[Bash: %s]", clip(tc.Command, 60))
	case toolGrep:
		return fmt.Sprintf("[Grep: %s]", orUnknown(tc.Pattern))
	case toolGlob:
		return fmt.Sprintf("[Glob: %s]", orUnknown(tc.Pattern))
	case toolWebFetch:
		return fmt.Sprintf("[WebFetch: %s]", clip(tc.URL, 60))
	case toolWebSearch:
		return fmt.Sprintf("[WebSearch: %s]", orUnknown(tc.Query))
	case toolAgent:
		return fmt.Sprintf("[Task: %q → %s]", tc.Description, tc.AgentType)
	default:
		return fmt.Sprintf("[%s]", tc.Name)
	}
}

// target extracts the one field that identifies what a tool acted on.
func target(tc parse.ToolCall) string {
	switch kindOf(tc.Name) {
	case toolRead, toolEdit, toolWrite:
		return tc.FilePath
	case toolShell:
		return tc.Command
	case toolGrep, toolGlob:
		return tc.Pattern
	case toolWebFetch:
		return tc.URL
	case toolWebSearch:
		return tc.Query
	case toolAgent:
		return tc.Description
	default:
		return ""
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
