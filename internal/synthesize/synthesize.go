// Package synthesize answers "what happened across sessions about X":
// full-text search picks candidate sessions, their matching exchanges are
// re-read from source, and a small model condenses the excerpts into a
// cross-session summary.
package synthesize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lunar-hook/sessionidx/internal/search"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// ErrNoAPIKey is returned when synthesis is requested without
// ANTHROPIC_API_KEY set. Callers can still show the source list.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY environment variable is required for synthesis")

const (
	synthesisModel = "claude-3-5-haiku-20241022"

	// maxBundleChars keeps the combined excerpts inside a small-model
	// context budget.
	maxBundleChars = 20_000

	exchangesPerSession = 5
)

// Options scope one synthesis run.
type Options struct {
	Query string
	Limit int // max sessions to draw excerpts from
}

// Source identifies one session that contributed excerpts.
type Source struct {
	SessionID string
	Title     string
	Date      string
	Project   string
	Client    string
}

// ResumeCommand is the shell command that reopens this session.
func (s Source) ResumeCommand() string {
	return "claude --resume " + s.SessionID
}

// Result carries the synthesis text plus the sessions it was drawn from.
// Sources may be non-empty even when Synthesis is blank: search found
// sessions but the model call failed or was skipped.
type Result struct {
	Query        string
	Sources      []Source
	Synthesis    string
	ExcerptCount int
}

// Run searches, bundles matching exchanges and asks the model for a
// cross-session summary.
func Run(ctx context.Context, st *store.Store, opts Options) (*Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	res := &Result{Query: opts.Query}

	hits, err := search.Search(st, search.Options{Query: opts.Query, Limit: opts.Limit})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no sessions found matching: %s", opts.Query)
	}

	var excerpts []string
	for _, hit := range hits {
		res.Sources = append(res.Sources, Source{
			SessionID: hit.SessionID,
			Title:     displayTitle(hit),
			Date:      day(hit.StartTime),
			Project:   hit.ProjectName,
			Client:    hit.Client,
		})

		cx, err := search.GetContext(st, hit.SessionID, opts.Query, exchangesPerSession)
		if err != nil || len(cx.Exchanges) == 0 {
			continue
		}
		excerpts = append(excerpts, formatExcerpt(hit, cx))
	}
	res.ExcerptCount = len(excerpts)

	if len(excerpts) == 0 {
		return res, errors.New("found sessions but couldn't extract relevant exchanges")
	}
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return res, ErrNoAPIKey
	}

	synthesis, err := ask(ctx, opts.Query, bundle(excerpts))
	if err != nil {
		return res, fmt.Errorf("synthesis call: %w", err)
	}
	res.Synthesis = synthesis
	return res, nil
}

func displayTitle(r search.Result) string {
	if r.TitleDisplay != "" {
		return r.TitleDisplay
	}
	if len(r.SessionID) >= 8 {
		return r.SessionID[:8]
	}
	return r.SessionID
}

func day(startTime string) string {
	if len(startTime) >= 10 {
		return startTime[:10]
	}
	return startTime
}

func formatExcerpt(hit search.Result, cx *search.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Session: %s (%s)\n", displayTitle(hit), day(hit.StartTime))
	for _, ex := range cx.Exchanges {
		fmt.Fprintf(&b, "User: %s\n", ex.User)
		fmt.Fprintf(&b, "Assistant: %s\n\n", ex.Assistant)
	}
	return b.String()
}

func bundle(excerpts []string) string {
	joined := strings.Join(excerpts, "\n---\n")
	if len(joined) > maxBundleChars {
		joined = joined[:maxBundleChars] + "\n[...truncated]"
	}
	return joined
}

const systemPrompt = "You are analyzing coding session excerpts. Be specific: reference actual solutions, file names, tools used. Keep it concise (under 500 words)."

func userPrompt(query, excerpts string) string {
	return fmt.Sprintf(`Given the following conversation excerpts about %q, synthesize:

1. **Approaches tried** — What solutions or methods were attempted?
2. **What worked** — Which approaches succeeded? Key decisions that helped?
3. **What failed** — What was abandoned or didn't work? Why?
4. **Recurring patterns** — Any themes, repeated issues, or evolving understanding?
5. **Current state** — Where did things land? What's the latest?

--- EXCERPTS ---
%s`, query, excerpts)
}

func ask(ctx context.Context, query, excerpts string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")))

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(synthesisModel),
		MaxTokens: 2048,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(query, excerpts))),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
