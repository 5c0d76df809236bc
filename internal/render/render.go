// Package render formats query results for the terminal: plain text with
// ANSI color, wrapped by display width.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/lunar-hook/sessionidx/internal/analytics"
	"github.com/lunar-hook/sessionidx/internal/search"
	"github.com/lunar-hook/sessionidx/internal/store"
	"github.com/lunar-hook/sessionidx/internal/synthesize"
)

const (
	colorReset  = "\033[0m"
	colorTitle  = "\033[1;36m" // bold cyan
	colorUser   = "\033[1;34m" // bold blue
	colorAssist = "\033[1;32m" // bold green
	colorDim    = "\033[2m"
	colorHit    = "\033[1;31m" // bold red for keyword highlights
	colorWarn   = "\033[33m"   // yellow
)

// ResumeCommand is the shell command that reopens a session.
func ResumeCommand(sessionID string) string {
	return "claude --resume " + sessionID
}

// Results renders search/find hits as a compact list, one block per
// session.
func Results(results []search.Result, query string, color bool) string {
	if len(results) == 0 {
		return "No sessions found.\n"
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		title := r.TitleDisplay
		if title == "" {
			title = "(unnamed)"
		}
		fmt.Fprintf(&b, "%s  %s\n", day(r.StartTime), paint(title, colorTitle, color))

		meta := []string{r.ProjectName}
		if r.Client != "" {
			meta = append(meta, r.Client)
		}
		meta = append(meta, fmt.Sprintf("%d exchanges", r.ExchangeCount))
		if r.DurationMinutes > 0 {
			meta = append(meta, fmt.Sprintf("%dm", r.DurationMinutes))
		}
		if r.HasCompaction {
			meta = append(meta, paint("compacted", colorWarn, color))
		}
		fmt.Fprintf(&b, "  %s\n", paint(strings.Join(meta, " · "), colorDim, color))

		if r.Snippet != "" {
			snippet := snippetText(r.Snippet, color)
			if query != "" {
				snippet = highlightKeywords(snippet, query, color)
			}
			fmt.Fprintf(&b, "  %s\n", snippet)
		}
		for _, t := range latestTopics(r.Topics, 3) {
			fmt.Fprintf(&b, "  %s\n", paint("- "+t.Topic, colorDim, color))
		}
		fmt.Fprintf(&b, "  %s\n", paint(ResumeCommand(r.SessionID), colorDim, color))
	}
	return b.String()
}

// Context renders a session's exchanges, user and assistant turns labeled
// and indented, query terms highlighted.
func Context(cx *search.Context, width int, color bool) string {
	var b strings.Builder

	title := cx.Session.TitleDisplay
	if title == "" {
		title = cx.Session.SessionID
	}
	fmt.Fprintf(&b, "%s\n", paint(fmt.Sprintf("--- %s [%s] ---", title, cx.Session.ProjectName), colorDim, color))
	if cx.Term != "" {
		fmt.Fprintf(&b, "%s\n", paint(fmt.Sprintf("%d exchanges match %q", cx.TotalMatches, cx.Term), colorDim, color))
	}

	sep := paint(strings.Repeat("-", 50), colorDim, color)
	for i, ex := range cx.Exchanges {
		if i > 0 {
			fmt.Fprintf(&b, "%s\n", sep)
		}
		fmt.Fprintf(&b, "%s #%d\n", paint("USER", colorUser, color), ex.Ordinal)
		writeWrapped(&b, indentLines(highlightKeywords(ex.User, cx.Term, color), "  "), width)
		if ex.Assistant != "" {
			fmt.Fprintf(&b, "%s\n", paint("ASST", colorAssist, color))
			writeWrapped(&b, indentLines(highlightKeywords(ex.Assistant, cx.Term, color), "  "), width)
		}
		for _, inv := range ex.Tools {
			line := "[" + inv.Name
			if inv.Target != "" {
				line += ": " + inv.Target
			}
			line += "]"
			fmt.Fprintf(&b, "  %s\n", paint(line, colorDim, color))
		}
	}
	if len(cx.Exchanges) < cx.TotalMatches {
		fmt.Fprintf(&b, "%s\n", paint(fmt.Sprintf("... (%d more exchanges) ...", cx.TotalMatches-len(cx.Exchanges)), colorDim, color))
	}
	fmt.Fprintf(&b, "\n%s\n", ResumeCommand(cx.Session.SessionID))
	return b.String()
}

// Report renders the analytics report.
func Report(r *analytics.Report, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", paint("Session analytics ("+r.Period+")", colorTitle, color))

	o := r.Overview
	fmt.Fprintf(&b, "\n%d sessions · %s total · avg %.0fm, %.1f exchanges · %d compacted\n",
		o.TotalSessions, hours(o.TotalMinutes), o.AvgDuration, o.AvgExchanges, o.CompactedSessions)

	if len(r.PerClient) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("By client", colorTitle, color))
		for _, c := range r.PerClient {
			fmt.Fprintf(&b, "  %-20s %4d sessions  %8s  %5.1f avg exchanges\n",
				c.Client, c.Sessions, hours(c.TotalMinutes), c.AvgExchanges)
		}
	}

	if len(r.PerProject) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("By project", colorTitle, color))
		for _, p := range r.PerProject {
			fmt.Fprintf(&b, "  %-30s %4d sessions  %8s\n", clipCell(p.ProjectName, 30), p.Sessions, hours(p.TotalMinutes))
		}
	}

	if len(r.DailyTrend) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("Last 14 days", colorTitle, color))
		for _, d := range r.DailyTrend {
			fmt.Fprintf(&b, "  %s  %3d  %s\n", d.Day, d.Sessions, paint(strings.Repeat("█", bar(d.Sessions, 40)), colorDim, color))
		}
	}

	if len(r.TopTools) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("Top tools", colorTitle, color))
		for _, t := range r.TopTools {
			fmt.Fprintf(&b, "  %-16s %6d uses  in %d sessions\n", t.Tool, t.Uses, t.SessionCount)
		}
	}

	if len(r.ToolTrends) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("Tool trends (vs previous period)", colorTitle, color))
		for _, t := range r.ToolTrends {
			fmt.Fprintf(&b, "  %-16s %6d  %s\n", t.Tool, t.Current, trendArrow(t.Current, t.Previous))
		}
	}

	if len(r.TopTopics) > 0 {
		fmt.Fprintf(&b, "\n%s\n", paint("Top topics", colorTitle, color))
		for _, t := range r.TopTopics {
			fmt.Fprintf(&b, "  %3dx  %s\n", t.Mentions, t.Topic)
		}
	}
	return b.String()
}

// Topics renders one session's topic timeline, oldest first.
func Topics(row *store.SessionRow, topics []store.TopicRow, color bool) string {
	var b strings.Builder
	title := row.TitleDisplay
	if title == "" {
		title = row.SessionID
	}
	fmt.Fprintf(&b, "%s\n", paint(title, colorTitle, color))
	if len(topics) == 0 {
		b.WriteString("  (no topics captured)\n")
		return b.String()
	}
	for _, t := range topics {
		fmt.Fprintf(&b, "  %s  %s %s\n", day(t.CapturedAt), t.Topic, paint("("+t.Source+")", colorDim, color))
	}
	return b.String()
}

// Synthesis renders a cross-session synthesis result, sources first.
func Synthesis(res *synthesize.Result, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", paint(fmt.Sprintf("Cross-session synthesis: %q", res.Query), colorTitle, color))

	if len(res.Sources) > 0 {
		fmt.Fprintf(&b, "\nSources (%d sessions, %d with matching exchanges):\n", len(res.Sources), res.ExcerptCount)
		for _, s := range res.Sources {
			fmt.Fprintf(&b, "  %s  %s\n", s.Date, clipCell(s.Title, 60))
			fmt.Fprintf(&b, "           %s\n", paint(s.ResumeCommand(), colorDim, color))
		}
	}
	if res.Synthesis != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", paint(strings.Repeat("─", 50), colorDim, color), res.Synthesis)
	}
	return b.String()
}

func latestTopics(topics []store.TopicRow, n int) []store.TopicRow {
	if len(topics) <= n {
		return topics
	}
	return topics[len(topics)-n:]
}

// snippetText converts the FTS snippet markers into highlight codes.
func snippetText(s string, color bool) string {
	if !color {
		s = strings.ReplaceAll(s, ">>>", "")
		return strings.ReplaceAll(s, "<<<", "")
	}
	s = strings.ReplaceAll(s, ">>>", colorHit)
	return strings.ReplaceAll(s, "<<<", colorReset)
}

// highlightKeywords wraps case-insensitive matches of query terms in
// highlight codes.
func highlightKeywords(text, query string, color bool) string {
	if query == "" || !color {
		return text
	}
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorHit + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func writeWrapped(b *strings.Builder, text string, width int) {
	for _, line := range strings.Split(text, "\n") {
		for _, wl := range wrapLine(line, width) {
			b.WriteString(wl)
			b.WriteString("\n")
		}
	}
}

// wrapLine breaks one line into lines that fit maxWidth visible columns,
// skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func paint(s, code string, color bool) string {
	if !color {
		return s
	}
	return code + s + colorReset
}

func day(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

func hours(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}

func clipCell(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func bar(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func trendArrow(current, previous int) string {
	switch {
	case previous == 0 && current > 0:
		return "new"
	case current > previous:
		return fmt.Sprintf("↑ +%d", current-previous)
	case current < previous:
		return fmt.Sprintf("↓ -%d", previous-current)
	default:
		return "="
	}
}
