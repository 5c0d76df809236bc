// Package analytics aggregates stored session rows. Everything here is
// read-only SQL over the index; source files are never re-parsed.
package analytics

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lunar-hook/sessionidx/internal/store"
)

// Filter scopes a report. Days > 0 restricts to the trailing window of
// that many days; zero means all time.
type Filter struct {
	Client  string
	Project string
	Days    int
}

type Overview struct {
	TotalSessions     int
	TotalMinutes      int
	AvgDuration       float64
	AvgExchanges      float64
	CompactedSessions int
}

type ClientRow struct {
	Client       string
	Sessions     int
	TotalMinutes int
	AvgExchanges float64
}

type ProjectRow struct {
	ProjectName  string
	Sessions     int
	TotalMinutes int
}

type DayRow struct {
	Day      string
	Sessions int
	Minutes  int
}

type ToolRow struct {
	Tool         string
	Uses         int
	SessionCount int
}

// TrendRow compares tool usage in the current window against the
// immediately preceding window of equal length.
type TrendRow struct {
	Tool     string
	Current  int
	Previous int
}

type TopicCount struct {
	Topic    string
	Mentions int
	Source   string
}

type Report struct {
	Period     string
	Overview   Overview
	PerClient  []ClientRow
	PerProject []ProjectRow
	DailyTrend []DayRow
	TopTools   []ToolRow
	ToolTrends []TrendRow
	TopTopics  []TopicCount
}

// trendWindowDays is the default period-over-period window when the
// filter is unbounded.
const trendWindowDays = 7

// Run assembles the full report for one filter.
func Run(st *store.Store, f Filter) (*Report, error) {
	db := st.Raw()
	report := &Report{Period: periodLabel(f.Days)}

	where, args := baseWhere(f)

	var err error
	if report.Overview, err = overview(db, where, args); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	if report.PerClient, err = perClient(db, where, args); err != nil {
		return nil, fmt.Errorf("per client: %w", err)
	}
	if report.PerProject, err = perProject(db, where, args); err != nil {
		return nil, fmt.Errorf("per project: %w", err)
	}
	if report.DailyTrend, err = dailyTrend(db); err != nil {
		return nil, fmt.Errorf("daily trend: %w", err)
	}
	if report.TopTools, err = topTools(db, where, args); err != nil {
		return nil, fmt.Errorf("top tools: %w", err)
	}
	if report.ToolTrends, err = toolTrends(db, f.Days); err != nil {
		return nil, fmt.Errorf("tool trends: %w", err)
	}
	if report.TopTopics, err = topTopics(db, where, args); err != nil {
		return nil, fmt.Errorf("top topics: %w", err)
	}
	return report, nil
}

func periodLabel(days int) string {
	switch days {
	case 0:
		return "all time"
	case 7:
		return "this week"
	case 30:
		return "this month"
	default:
		return fmt.Sprintf("last %d days", days)
	}
}

func sinceDays(n int) string {
	return time.Now().AddDate(0, 0, -n).UTC().Format("2006-01-02T15:04:05Z")
}

func baseWhere(f Filter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if f.Days > 0 {
		conditions = append(conditions, "s.start_time >= ?")
		args = append(args, sinceDays(f.Days))
	}
	if f.Client != "" {
		conditions = append(conditions, "s.client LIKE ?")
		args = append(args, "%"+f.Client+"%")
	}
	if f.Project != "" {
		conditions = append(conditions, "(s.project_name LIKE ? OR s.project LIKE ?)")
		args = append(args, "%"+f.Project+"%", "%"+f.Project+"%")
	}
	return strings.Join(conditions, " AND "), args
}

func overview(db *sql.DB, where string, args []interface{}) (Overview, error) {
	var o Overview
	var minutes, avgDur, avgEx sql.NullFloat64
	err := db.QueryRow(fmt.Sprintf(`
		SELECT COUNT(*),
			SUM(s.duration_minutes),
			AVG(s.duration_minutes),
			AVG(s.exchange_count),
			SUM(CASE WHEN s.has_compaction = 1 THEN 1 ELSE 0 END)
		FROM sessions s WHERE %s`, where), args...).
		Scan(&o.TotalSessions, &minutes, &avgDur, &avgEx, &o.CompactedSessions)
	if err != nil {
		return o, err
	}
	o.TotalMinutes = int(minutes.Float64)
	o.AvgDuration = avgDur.Float64
	o.AvgExchanges = avgEx.Float64
	return o, nil
}

func perClient(db *sql.DB, where string, args []interface{}) ([]ClientRow, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT s.client, COUNT(*), SUM(s.duration_minutes), AVG(s.exchange_count)
		FROM sessions s
		WHERE %s AND s.client IS NOT NULL
		GROUP BY s.client
		ORDER BY SUM(s.duration_minutes) DESC`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClientRow
	for rows.Next() {
		var r ClientRow
		var minutes sql.NullInt64
		var avg sql.NullFloat64
		if err := rows.Scan(&r.Client, &r.Sessions, &minutes, &avg); err != nil {
			return nil, err
		}
		r.TotalMinutes = int(minutes.Int64)
		r.AvgExchanges = avg.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}

func perProject(db *sql.DB, where string, args []interface{}) ([]ProjectRow, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT s.project_name, COUNT(*), SUM(s.duration_minutes)
		FROM sessions s
		WHERE %s
		GROUP BY s.project_name
		ORDER BY COUNT(*) DESC`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectRow
	for rows.Next() {
		var r ProjectRow
		var minutes sql.NullInt64
		if err := rows.Scan(&r.ProjectName, &r.Sessions, &minutes); err != nil {
			return nil, err
		}
		r.TotalMinutes = int(minutes.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// dailyTrend always covers the last 14 days regardless of the filter, so
// the sparkline stays comparable between reports.
func dailyTrend(db *sql.DB) ([]DayRow, error) {
	rows, err := db.Query(`
		SELECT substr(start_time, 1, 10), COUNT(*), SUM(duration_minutes)
		FROM sessions
		WHERE start_time >= ?
		GROUP BY substr(start_time, 1, 10)
		ORDER BY 1`, sinceDays(14))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayRow
	for rows.Next() {
		var r DayRow
		var minutes sql.NullInt64
		if err := rows.Scan(&r.Day, &r.Sessions, &minutes); err != nil {
			return nil, err
		}
		r.Minutes = int(minutes.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func topTools(db *sql.DB, where string, args []interface{}) ([]ToolRow, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT st.tool_name, SUM(st.use_count), COUNT(DISTINCT st.session_id)
		FROM session_tools st
		JOIN sessions s ON s.session_id = st.session_id
		WHERE %s
		GROUP BY st.tool_name
		ORDER BY SUM(st.use_count) DESC
		LIMIT 15`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolRow
	for rows.Next() {
		var r ToolRow
		if err := rows.Scan(&r.Tool, &r.Uses, &r.SessionCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func toolTrends(db *sql.DB, days int) ([]TrendRow, error) {
	if days <= 0 {
		days = trendWindowDays
	}
	currentStart := sinceDays(days)
	previousStart := sinceDays(2 * days)

	rows, err := db.Query(`
		SELECT st.tool_name,
			SUM(CASE WHEN s.start_time >= ? THEN st.use_count ELSE 0 END),
			SUM(CASE WHEN s.start_time >= ? AND s.start_time < ? THEN st.use_count ELSE 0 END)
		FROM session_tools st
		JOIN sessions s ON s.session_id = st.session_id
		WHERE s.start_time >= ?
		GROUP BY st.tool_name
		HAVING SUM(st.use_count) > 0
		ORDER BY 2 DESC
		LIMIT 15`,
		currentStart, previousStart, currentStart, previousStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendRow
	for rows.Next() {
		var r TrendRow
		if err := rows.Scan(&r.Tool, &r.Current, &r.Previous); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func topTopics(db *sql.DB, where string, args []interface{}) ([]TopicCount, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT st.topic, COUNT(*), st.source
		FROM session_topics st
		JOIN sessions s ON s.session_id = st.session_id
		WHERE %s
		GROUP BY st.topic
		ORDER BY COUNT(*) DESC
		LIMIT 20`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopicCount
	for rows.Next() {
		var r TopicCount
		if err := rows.Scan(&r.Topic, &r.Mentions, &r.Source); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
