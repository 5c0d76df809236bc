package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lunar-hook/sessionidx/internal/search"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No results")
	}

	var lines []string
	for i, r := range m.results {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatResultLines(r, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatResultLines formats one session as two lines:
//
//	line 1: [>] MM-DD project title
//	line 2:     snippet or latest topic (dimmed)
func formatResultLines(r search.Result, width int, selected bool) []string {
	date := r.StartTime
	if len(date) >= 10 {
		date = date[5:10]
	}

	title := r.TitleDisplay
	if title == "" {
		title = "(unnamed)"
	}
	head := fmt.Sprintf("%s %s %s", date, r.ProjectName, strings.ReplaceAll(title, "\n", " "))
	headMax := width - 2
	if headMax < 0 {
		headMax = 0
	}
	if runewidth.StringWidth(head) > headMax {
		head = runewidth.Truncate(head, headMax, "")
	}
	line1 := "  " + head
	if selected {
		line1 = styleSelected.Render("> ") + head
	}

	detail := r.Snippet
	if detail == "" && len(r.Topics) > 0 {
		detail = r.Topics[len(r.Topics)-1].Topic
	}
	detail = strings.NewReplacer("\n", " ", "\t", " ", ">>>", "", "<<<", "").Replace(detail)
	detailMax := width - 4
	if detailMax < 0 {
		detailMax = 0
	}
	if runewidth.StringWidth(detail) > detailMax {
		detail = runewidth.Truncate(detail, detailMax, "")
	}
	line2 := "    " + styleDim.Render(detail)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list panel.
func (m *model) adjustListScroll() {
	visibleItems := m.panelHeight() / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
