package search

import (
	"fmt"
	"strings"

	"github.com/lunar-hook/sessionidx/internal/exchange"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// maxExchangeChars bounds user/assistant text per returned exchange.
const maxExchangeChars = 1000

// Context is a session's verbatim exchanges, re-read from the source file
// rather than the store so the transcript is always fresh and never stored
// twice.
type Context struct {
	Session      *store.SessionRow
	Term         string
	Exchanges    []exchange.Exchange
	TotalMatches int
}

// GetContext reconstructs exchanges for one session. With a term, only
// exchanges whose user or assistant text contains it are returned; exact
// substring match is tried first, then any word of the term. Exchanges are
// always ordered by ordinal ascending.
func GetContext(st *store.Store, sessionID, term string, limit int) (*Context, error) {
	row, err := st.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	sess, err := exchange.ScanFile(row.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", row.FilePath, err)
	}

	exchanges := sess.Exchanges
	if term != "" {
		exchanges = filterExchanges(exchanges, term)
	}

	total := len(exchanges)
	if limit > 0 && len(exchanges) > limit {
		exchanges = exchanges[:limit]
	}
	for i := range exchanges {
		exchanges[i].User = clipText(exchanges[i].User)
		exchanges[i].Assistant = clipText(exchanges[i].Assistant)
	}

	return &Context{
		Session:      row,
		Term:         term,
		Exchanges:    exchanges,
		TotalMatches: total,
	}, nil
}

func filterExchanges(exchanges []exchange.Exchange, term string) []exchange.Exchange {
	lower := strings.ToLower(term)
	var matched []exchange.Exchange
	for _, ex := range exchanges {
		if strings.Contains(strings.ToLower(ex.User), lower) ||
			strings.Contains(strings.ToLower(ex.Assistant), lower) {
			matched = append(matched, ex)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	// fall back to matching any substantial word of the term
	var words []string
	for _, w := range strings.Fields(lower) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}
	for _, ex := range exchanges {
		u, a := strings.ToLower(ex.User), strings.ToLower(ex.Assistant)
		for _, w := range words {
			if strings.Contains(u, w) || strings.Contains(a, w) {
				matched = append(matched, ex)
				break
			}
		}
	}
	return matched
}

func clipText(s string) string {
	if len(s) > maxExchangeChars {
		return s[:maxExchangeChars] + "..."
	}
	return s
}
