// Package search is the read-side query engine: escaped full-text search,
// structured filtering and verbatim context retrieval.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/lunar-hook/sessionidx/internal/store"
)

// Result is one ranked session hit.
type Result struct {
	SessionID       string
	Project         string
	ProjectName     string
	Title           string
	TitleDisplay    string
	Client          string
	Tags            string
	ExchangeCount   int
	StartTime       string
	DurationMinutes int
	HasCompaction   bool
	Snippet         string
	Rank            float64
	Topics          []store.TopicRow
}

// Options compose free text with structured filters. Zero values mean "no
// filter".
type Options struct {
	Query          string
	Client         string
	Project        string
	ExcludeProject string
	Tool           string
	Agent          string
	Tag            string
	Date           string // exact day, YYYY-MM-DD
	Since          string // inclusive lower bound
	Until          string // exclusive upper bound
	Compacted      bool
	Limit          int
}

// EscapeQuery quotes every term so FTS5 treats punctuation and reserved
// syntax (AND, NEAR, *, ., -) as literal text. A search for `session-index.`
// must match that substring, never parse as operators.
func EscapeQuery(q string) string {
	terms := strings.Fields(q)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

const resultCols = `s.session_id, s.project, s.project_name,
	COALESCE(s.title, ''), COALESCE(s.title_display, ''),
	COALESCE(s.client, ''), COALESCE(s.tags, ''), s.exchange_count,
	COALESCE(s.start_time, ''), s.duration_minutes, s.has_compaction`

// Search runs full-text search, ranked by relevance descending with
// recency as the tiebreak.
func Search(st *store.Store, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	conditions := []string{"session_content MATCH ?"}
	args := []interface{}{EscapeQuery(opts.Query)}
	conditions, args = appendFilters(conditions, args, opts)

	query := fmt.Sprintf(`
		SELECT %s,
			snippet(session_content, 1, '>>>', '<<<', '...', 40),
			bm25(session_content)
		FROM session_content
		JOIN sessions s ON s.session_id = session_content.session_id
		WHERE %s
		ORDER BY rank, s.start_time DESC
		LIMIT ?`, resultCols, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := st.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var compaction int
		if err := rows.Scan(&r.SessionID, &r.Project, &r.ProjectName,
			&r.Title, &r.TitleDisplay, &r.Client, &r.Tags, &r.ExchangeCount,
			&r.StartTime, &r.DurationMinutes, &compaction,
			&r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		r.HasCompaction = compaction != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	attachTopics(st, results)
	return results, nil
}

// Find filters sessions without free text, most recent first.
func Find(st *store.Store, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	conditions := []string{"1=1"}
	var args []interface{}
	conditions, args = appendFilters(conditions, args, opts)

	query := fmt.Sprintf(`
		SELECT %s FROM sessions s
		WHERE %s
		ORDER BY s.start_time DESC
		LIMIT ?`, resultCols, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := st.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var compaction int
		if err := rows.Scan(&r.SessionID, &r.Project, &r.ProjectName,
			&r.Title, &r.TitleDisplay, &r.Client, &r.Tags, &r.ExchangeCount,
			&r.StartTime, &r.DurationMinutes, &compaction); err != nil {
			return nil, err
		}
		r.HasCompaction = compaction != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	attachTopics(st, results)
	return results, nil
}

// Recent returns the n most recent sessions.
func Recent(st *store.Store, n int) ([]Result, error) {
	return Find(st, Options{Limit: n})
}

func appendFilters(conditions []string, args []interface{}, opts Options) ([]string, []interface{}) {
	if opts.Client != "" {
		conditions = append(conditions, "s.client LIKE ?")
		args = append(args, "%"+opts.Client+"%")
	}
	if opts.Project != "" {
		conditions = append(conditions, "(s.project_name LIKE ? OR s.project LIKE ?)")
		args = append(args, "%"+opts.Project+"%", "%"+opts.Project+"%")
	}
	if opts.ExcludeProject != "" {
		conditions = append(conditions, "s.project_name NOT LIKE ? AND s.project NOT LIKE ?")
		args = append(args, "%"+opts.ExcludeProject+"%", "%"+opts.ExcludeProject+"%")
	}
	if opts.Tool != "" {
		conditions = append(conditions, "s.session_id IN (SELECT session_id FROM session_tools WHERE tool_name LIKE ?)")
		args = append(args, "%"+opts.Tool+"%")
	}
	if opts.Agent != "" {
		conditions = append(conditions, "s.session_id IN (SELECT session_id FROM session_agents WHERE agent_name LIKE ?)")
		args = append(args, "%"+opts.Agent+"%")
	}
	if opts.Tag != "" {
		conditions = append(conditions, "s.tags LIKE ?")
		args = append(args, "%"+opts.Tag+"%")
	}
	if opts.Date != "" {
		conditions = append(conditions, "s.start_time LIKE ?")
		args = append(args, opts.Date+"%")
	}
	if opts.Since != "" {
		conditions = append(conditions, "s.start_time >= ?")
		args = append(args, opts.Since)
	}
	if opts.Until != "" {
		conditions = append(conditions, "s.start_time < ?")
		args = append(args, opts.Until)
	}
	if opts.Compacted {
		conditions = append(conditions, "s.has_compaction = 1")
	}
	return conditions, args
}

// attachTopics loads a compact topic timeline per result. Topic load
// failures leave the result without topics rather than failing the search.
func attachTopics(st *store.Store, results []Result) {
	for i := range results {
		topics, err := st.Topics(results[i].SessionID)
		if err != nil {
			continue
		}
		if len(topics) > 10 {
			topics = topics[:10]
		}
		results[i].Topics = topics
	}
}

// SinceDays formats a filter bound n days back from now.
func SinceDays(n int) string {
	return time.Now().AddDate(0, 0, -n).UTC().Format("2006-01-02T15:04:05Z")
}
