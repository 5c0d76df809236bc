package parse

import "time"

// Kind discriminates the typed events decoded from a transcript record.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserMessage
	KindAssistantMessage
	KindToolCall
	KindToolResult
	KindAgentInvocation
	KindSummary
	KindSessionMeta
)

func (k Kind) String() string {
	switch k {
	case KindUserMessage:
		return "user"
	case KindAssistantMessage:
		return "assistant"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	case KindAgentInvocation:
		return "agent"
	case KindSummary:
		return "summary"
	case KindSessionMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// ToolCall carries the fields needed to collapse a tool invocation into a
// one-line description. Only the fields relevant to the tool's name are set.
type ToolCall struct {
	ID          string
	Name        string
	FilePath    string
	Command     string
	Pattern     string
	URL         string
	Query       string
	Description string
	AgentType   string
	OldString   string
}

// Event is one decoded transcript event. Kind selects which fields are
// meaningful; everything else is zero.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Line      int

	// KindUserMessage, KindAssistantMessage
	Text  string
	Model string

	// KindToolCall
	Tool ToolCall

	// KindToolResult
	ToolRef string

	// KindAgentInvocation
	AgentName        string
	AgentDescription string

	// KindSummary
	Summary string

	// KindSessionMeta
	Meta map[string]string
}
