package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lunar-hook/sessionidx/internal/render"
	"github.com/lunar-hook/sessionidx/internal/search"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// previewMsg is sent when an async preview render completes.
type previewMsg struct {
	sessionID string
	content   string
	err       error
}

// previewExchanges caps how much of a session the preview reconstructs.
const previewExchanges = 30

// loadPreviewCmd renders the session's matching exchanges off the update
// loop; re-reading the source file can be slow for long transcripts.
func loadPreviewCmd(st *store.Store, sessionID, query string, width int) tea.Cmd {
	return func() tea.Msg {
		cx, err := search.GetContext(st, sessionID, query, previewExchanges)
		if err != nil {
			return previewMsg{sessionID: sessionID, err: err}
		}
		return previewMsg{
			sessionID: sessionID,
			content:   render.Context(cx, width, true),
		}
	}
}
