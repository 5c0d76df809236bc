// Package topic implements hook-driven topic capture: short labels for
// what a session is about, appended to the topic timeline as the session
// runs. No model calls, just text heuristics over recent user messages.
package topic

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// maxTopicLen is the display budget for one topic label.
const maxTopicLen = 60

// tailReadBytes bounds how much of a large transcript is read when looking
// for recent user messages.
const tailReadBytes = 200_000

// skipPatterns match user messages that make useless topics: bare
// acknowledgements, slash commands, injected system content.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(yes|no|ok|sure|thanks|thank you|yep|nope|cool|great|good|fine|hmm|ah|oh)\b`),
	regexp.MustCompile(`^/$`),
	regexp.MustCompile(`^<system-reminder>`),
	regexp.MustCompile(`^<task-notification>`),
	regexp.MustCompile(`^This session has ended`),
	regexp.MustCompile(`^\[Request interrupted`),
}

var (
	reminderRe   = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)
	codeBlockRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	formattingRe = regexp.MustCompile(`[#*_~]+`)
	sentenceRe   = regexp.MustCompile(`[.!?]\s+`)
	clauseRe     = regexp.MustCompile(`[,;:—–\-]\s+`)
)

// RecentUserMessages extracts the last n substantive user messages from a
// transcript, oldest first. Only the file tail is read.
func RecentUserMessages(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := info.Size() - tailReadBytes
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}

	lines := strings.Split(string(buf), "\n")
	var messages []string
	for i := len(lines) - 1; i >= 0 && len(messages) < n; i-- {
		text, ok := decodeUserLine(lines[i])
		if !ok || len(text) < 15 {
			continue
		}
		if matchesAny(text, skipPatterns) {
			continue
		}
		messages = append(messages, text)
	}

	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func decodeUserLine(line string) (string, bool) {
	var rec struct {
		Type    string `json:"type"`
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Type != "user" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(rec.Message.Content, &s); err == nil {
		return s, true
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Message.Content, &blocks); err != nil {
		return "", false
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " "), true
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Extract derives a concise topic from recent user messages: most recent
// substantive message, stripped of markup, first sentence or clause,
// truncated and capitalized. Empty result means nothing usable was found.
func Extract(messages []string) string {
	if len(messages) == 0 {
		return ""
	}

	msg := messages[len(messages)-1]
	msg = reminderRe.ReplaceAllString(msg, "")
	msg = codeBlockRe.ReplaceAllString(msg, "")
	msg = inlineCodeRe.ReplaceAllString(msg, "")
	msg = linkRe.ReplaceAllString(msg, "$1")
	msg = formattingRe.ReplaceAllString(msg, "")
	msg = strings.Join(strings.Fields(msg), " ")

	if len(msg) < 10 {
		if len(messages) >= 2 {
			return Extract(messages[:len(messages)-1])
		}
		return ""
	}

	t := sentenceRe.Split(msg, 2)[0]
	if len(t) > maxTopicLen {
		t = clauseRe.Split(t, 2)[0]
	}
	t = strings.TrimSpace(t)
	if len(t) > maxTopicLen {
		t = t[:maxTopicLen-3] + "..."
	}
	if t == "" {
		return ""
	}

	r := []rune(t)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
