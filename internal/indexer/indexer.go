// Package indexer is the incremental index driver: it decides per source
// file whether (re)indexing is needed and performs idempotent upserts and
// deletes against the store.
package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunar-hook/sessionidx/internal/config"
	"github.com/lunar-hook/sessionidx/internal/exchange"
	"github.com/lunar-hook/sessionidx/internal/scan"
	"github.com/lunar-hook/sessionidx/internal/store"
	"github.com/lunar-hook/sessionidx/internal/title"
)

// State classifies one source file against its recorded fingerprint.
type State int

const (
	Unseen State = iota
	Unchanged
	Changed
	Deleted
)

func (s State) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "invalid"
	}
}

type Stats struct {
	Scanned   int
	Indexed   int
	Unchanged int
	Pruned    int
	Errors    int
	Skipped   int // malformed lines across indexed files
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d indexed=%d unchanged=%d pruned=%d errors=%d bad_lines=%d",
		s.Scanned, s.Indexed, s.Unchanged, s.Pruned, s.Errors, s.Skipped)
}

// Classify runs the fingerprint comparison for one file. Fingerprint
// errors (file vanished between scan and hash) resolve to Deleted.
func Classify(st *store.Store, fi scan.FileInfo, strict bool) (State, string, error) {
	recorded, exists, err := st.Fingerprint(fi.Path)
	if err != nil {
		return Unseen, "", err
	}
	if _, statErr := os.Stat(fi.Path); statErr != nil {
		return Deleted, "", nil
	}
	current, err := fingerprint(fi, strict)
	if err != nil {
		return Deleted, "", nil
	}
	switch {
	case !exists:
		return Unseen, current, nil
	case recorded == current:
		return Unchanged, current, nil
	default:
		return Changed, current, nil
	}
}

// IndexAll re-scans every source file and brings the store up to date. It
// is safe to re-run at any time: with no source changes the result is a
// no-op. Parsing runs on a bounded worker pool; store writes are
// serialized. Interruption via ctx loses nothing already committed.
func IndexAll(ctx context.Context, st *store.Store, cfg config.Config) (Stats, error) {
	var stats Stats

	files, err := scan.Root(cfg.ProjectsDir)
	if err != nil {
		return stats, fmt.Errorf("scan %s: %w", cfg.ProjectsDir, err)
	}
	stats.Scanned = len(files)

	var mu sync.Mutex // serializes store writes and stats updates
	seen := make(map[string]struct{}, len(files))
	for _, fi := range files {
		seen[fi.Path] = struct{}{}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, fi := range files {
		fi := fi
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			mu.Lock()
			state, fp, err := Classify(st, fi, cfg.StrictHash)
			mu.Unlock()
			if err != nil {
				mu.Lock()
				stats.Errors++
				mu.Unlock()
				return nil
			}
			switch state {
			case Unchanged:
				mu.Lock()
				stats.Unchanged++
				mu.Unlock()
				return nil
			case Deleted:
				// scan raced a deletion; the prune pass handles it
				return nil
			}

			rec, err := BuildRecord(cfg, fi)
			if err != nil {
				mu.Lock()
				stats.Errors++
				mu.Unlock()
				fmt.Fprintf(os.Stderr, "  WARN: parse %s: %v\n", fi.Path, err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err := commitRecord(st, rec, fi.Path, fp); err != nil {
				stats.Errors++
				fmt.Fprintf(os.Stderr, "  WARN: index %s: %v\n", fi.Path, err)
				return nil
			}
			stats.Indexed++
			stats.Skipped += rec.SkippedLines
			return nil
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return stats, err
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}

	pruned, err := prune(st, seen)
	stats.Pruned = pruned
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	return stats, nil
}

// IndexSession indexes a single session by ID, the "index one session now"
// lifecycle entry point. force bypasses the Unchanged skip.
func IndexSession(st *store.Store, cfg config.Config, sessionID string, force bool) error {
	fi, ok := scan.FindSession(cfg.ProjectsDir, sessionID)
	if !ok {
		return fmt.Errorf("session file not found: %s", sessionID)
	}
	return IndexFile(st, cfg, fi, force)
}

// IndexFile drives the state machine for one known source file.
func IndexFile(st *store.Store, cfg config.Config, fi scan.FileInfo, force bool) error {
	state, fp, err := Classify(st, fi, cfg.StrictHash)
	if err != nil {
		return err
	}
	switch state {
	case Deleted:
		return deleteByPath(st, fi.Path)
	case Unchanged:
		if !force {
			return nil
		}
	}

	rec, err := BuildRecord(cfg, fi)
	if err != nil {
		return err
	}
	return commitRecord(st, rec, fi.Path, fp)
}

// BuildRecord runs Parser + Normalizer + Title Inference for one file and
// assembles the store record. No store access happens here, so records for
// distinct files can be built concurrently.
func BuildRecord(cfg config.Config, fi scan.FileInfo) (*store.SessionRecord, error) {
	sess, err := exchange.ScanFile(fi.Path)
	if err != nil {
		return nil, err
	}
	stats := sess.Stats

	inferred := title.Infer(title.Input{
		CustomTitle: stats.CustomTitle,
		Summaries:   stats.Summaries,
		UserPrompts: stats.UserPrompts,
	})

	rec := &store.SessionRecord{
		SessionID:       fi.SessionID,
		Project:         fi.Project,
		ProjectName:     cfg.ProjectName(fi.Project),
		Title:           inferred.Title,
		TitleDisplay:    inferred.Display,
		Tags:            inferred.Tags,
		Client:          detectClient(cfg, fi.Project, stats.UserPrompts),
		FilePath:        fi.Path,
		FileSize:        fi.Size,
		ExchangeCount:   stats.ExchangeCount,
		StartTime:       stats.StartTime,
		EndTime:         stats.EndTime,
		DurationMinutes: stats.DurationMinutes(),
		Model:           stats.Model,
		HasCompaction:   stats.HasCompaction,
		SkippedLines:    stats.SkippedLines,
		Tools:           stats.Tools,
		Agents:          stats.Agents,
		Content:         ftsContent(stats.UserPrompts),
	}

	capturedAt := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	if !stats.EndTime.IsZero() {
		capturedAt = stats.EndTime.UTC().Format("2006-01-02T15:04:05Z")
	}
	for _, s := range stats.Summaries {
		topic := title.CleanSummary(s)
		if topic == "" {
			continue
		}
		if len(topic) > 120 {
			topic = topic[:120]
		}
		rec.Topics = append(rec.Topics, store.TopicEntry{
			Topic:      topic,
			Source:     "compaction_summary",
			CapturedAt: capturedAt,
		})
	}

	return rec, nil
}

const (
	maxFTSPrompts = 50
	maxFTSBytes   = 100_000
)

// ftsContent builds the searchable text for a session from its user
// prompts, truncated so one huge session cannot bloat the index.
func ftsContent(prompts []string) string {
	if len(prompts) > maxFTSPrompts {
		prompts = prompts[:maxFTSPrompts]
	}
	content := strings.Join(prompts, "\n")
	if len(content) > maxFTSBytes {
		content = content[:maxFTSBytes]
	}
	return content
}

// detectClient matches configured client names against the first prompts,
// then against the project name.
func detectClient(cfg config.Config, project string, prompts []string) string {
	if len(cfg.Clients) == 0 {
		return ""
	}
	n := len(prompts)
	if n > 10 {
		n = 10
	}
	early := strings.ToLower(strings.Join(prompts[:n], " "))
	for _, c := range cfg.Clients {
		if strings.Contains(early, strings.ToLower(c)) {
			return c
		}
	}
	projectName := strings.ToLower(cfg.ProjectName(project))
	for _, c := range cfg.Clients {
		if strings.Contains(projectName, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

// commitRecord writes the session rows, then the fingerprint. The
// fingerprint is recorded only after the session transaction commits, so a
// crash between the two re-indexes rather than skipping.
func commitRecord(st *store.Store, rec *store.SessionRecord, path, fp string) error {
	if err := retryBusy(func() error { return st.ReplaceSession(rec) }); err != nil {
		return err
	}
	return retryBusy(func() error { return st.SetFingerprint(path, rec.SessionID, fp) })
}

// prune removes sessions whose source files no longer exist.
func prune(st *store.Store, seen map[string]struct{}) (int, error) {
	indexed, err := st.IndexedFiles()
	if err != nil {
		return 0, err
	}
	pruned := 0
	for path, sessionID := range indexed {
		if _, ok := seen[path]; ok {
			continue
		}
		if err := retryBusy(func() error { return st.DeleteSession(sessionID) }); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// RemoveFile drops the session indexed from path, if any. Unknown paths
// are a no-op.
func RemoveFile(st *store.Store, path string) error {
	return deleteByPath(st, path)
}

func deleteByPath(st *store.Store, path string) error {
	indexed, err := st.IndexedFiles()
	if err != nil {
		return err
	}
	if sessionID, ok := indexed[path]; ok {
		return retryBusy(func() error { return st.DeleteSession(sessionID) })
	}
	return nil
}

// retryBusy retries a write that lost to a concurrent writer. WAL plus
// busy_timeout handles most contention; this covers the rest.
func retryBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "SQLITE_BUSY") && !strings.Contains(msg, "database is locked") {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return err
}
