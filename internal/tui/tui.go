// Package tui is the interactive search browser: type-to-search session
// list on the left, transcript preview on the right.
package tui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lunar-hook/sessionidx/internal/render"
	"github.com/lunar-hook/sessionidx/internal/search"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// debounceDelay is how long typing must pause before a search fires.
const debounceDelay = 200 * time.Millisecond

type searchResultMsg struct {
	query   string
	results []search.Result
	err     error
}

type debounceTickMsg struct {
	query string
}

type model struct {
	st         *store.Store
	searchOpts search.Options
	query      string
	results    []search.Result
	cursor     int
	listOffset int
	input      textinput.Model
	preview    viewport.Model
	previewID  string // session ID currently rendered, avoids duplicate loads
	width      int
	height     int
	ready      bool
	quitting   bool
	selected   *search.Result
}

// Run starts the browser and blocks until it exits. Selecting a session
// copies its resume command to the clipboard.
func Run(st *store.Store, query string, opts search.Options) error {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Focus()
	ti.SetValue(query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInput
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	m := model{
		st:         st,
		searchOpts: opts,
		query:      query,
		input:      ti,
		preview:    viewport.New(0, 0),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.selected != nil {
		return copyResume(fm.selected.SessionID)
	}
	return nil
}

// copyResume puts the resume command on the clipboard, falling back to
// printing it when no clipboard is available.
func copyResume(sessionID string) error {
	cmd := render.ResumeCommand(sessionID)
	if err := clipboard.WriteAll(cmd); err != nil {
		fmt.Printf("%s\n", cmd)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", cmd)
	return nil
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.doSearch(m.query)}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = viewport.New(m.previewWidth(), m.panelHeight())
		m.previewID = ""
		if cmd := m.loadCurrentPreview(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if len(m.results) > 0 && m.cursor < len(m.results) {
				r := m.results[m.cursor]
				m.selected = &r
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll()
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
				m.adjustListScroll()
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil
		}

		var tiCmd tea.Cmd
		m.input, tiCmd = m.input.Update(msg)
		cmds = append(cmds, tiCmd)

		if newQuery := m.input.Value(); newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, tea.Tick(debounceDelay, func(time.Time) tea.Msg {
				return debounceTickMsg{query: newQuery}
			}))
		}
		return m, tea.Batch(cmds...)

	case debounceTickMsg:
		// stale ticks fire for superseded queries; ignore them
		if msg.query == m.query {
			cmds = append(cmds, m.doSearch(msg.query))
		}
		return m, tea.Batch(cmds...)

	case searchResultMsg:
		if msg.query != m.query {
			return m, nil
		}
		m.cursor = 0
		m.listOffset = 0
		m.previewID = ""
		if msg.err != nil {
			m.results = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			return m, nil
		}
		m.results = msg.results
		if len(m.results) > 0 {
			cmds = append(cmds, m.loadCurrentPreview())
		} else {
			m.preview.SetContent("")
		}
		return m, tea.Batch(cmds...)

	case previewMsg:
		if len(m.results) == 0 || m.cursor >= len(m.results) ||
			m.results[m.cursor].SessionID != msg.sessionID {
			return m, nil // stale preview
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			m.preview.GotoTop()
		}
		m.previewID = msg.sessionID
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = m.previewWidth()
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(m.previewWidth()).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	status := styleStatusBar.Render(fmt.Sprintf(
		"%d results | up/dn navigate | C-u/C-d preview | Enter copy resume cmd | Esc quit",
		len(m.results)))

	return lipgloss.JoinVertical(lipgloss.Left, m.input.View(), panels, status)
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row, status bar and borders
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) doSearch(query string) tea.Cmd {
	st := m.st
	opts := m.searchOpts
	opts.Query = query
	return func() tea.Msg {
		var (
			results []search.Result
			err     error
		)
		if query == "" {
			results, err = search.Find(st, opts)
		} else {
			results, err = search.Search(st, opts)
		}
		return searchResultMsg{query: query, results: results, err: err}
	}
}

func (m model) loadCurrentPreview() tea.Cmd {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		return nil
	}
	r := m.results[m.cursor]
	if r.SessionID == m.previewID {
		return nil
	}
	return loadPreviewCmd(m.st, r.SessionID, m.query, m.previewWidth())
}
