package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lunar-hook/sessionidx/internal/render"
	"github.com/lunar-hook/sessionidx/internal/search"
	"github.com/lunar-hook/sessionidx/internal/tui"
)

// filterFlags are the structured filters shared by search and find.
type filterFlags struct {
	client         string
	project        string
	excludeProject string
	tool           string
	agent          string
	tag            string
	date           string
	since          string
	until          string
	days           int
	compacted      bool
	limit          int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.client, "client", "", "Filter by client name")
	cmd.Flags().StringVar(&f.project, "project", "", "Filter by project")
	cmd.Flags().StringVar(&f.excludeProject, "exclude-project", "", "Exclude a project")
	cmd.Flags().StringVar(&f.tool, "tool", "", "Filter by tool used")
	cmd.Flags().StringVar(&f.agent, "agent", "", "Filter by agent invoked")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Filter by title tag")
	cmd.Flags().StringVar(&f.date, "date", "", "Sessions on an exact day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.since, "since", "", "Sessions starting on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "Sessions starting before (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.days, "days", 0, "Sessions from the last N days")
	cmd.Flags().BoolVar(&f.compacted, "compacted", false, "Only sessions that hit compaction")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Max results")
}

func (f *filterFlags) options() search.Options {
	opts := search.Options{
		Client:         f.client,
		Project:        f.project,
		ExcludeProject: f.excludeProject,
		Tool:           f.tool,
		Agent:          f.agent,
		Tag:            f.tag,
		Date:           f.date,
		Since:          f.since,
		Until:          f.until,
		Compacted:      f.compacted,
		Limit:          f.limit,
	}
	if f.days > 0 && opts.Since == "" {
		opts.Since = search.SinceDays(f.days)
	}
	return opts
}

func searchCmd() *cobra.Command {
	var flags filterFlags
	var plain bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed sessions",
		Long: `Search session content with FTS5. Query terms are matched literally;
punctuation never turns into query operators. On a terminal this opens the
interactive browser; piped output is plain text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			opts := flags.options()
			isTTY := term.IsTerminal(int(os.Stdout.Fd()))
			if isTTY && !plain {
				return tui.Run(st, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(st, opts)
			if err != nil {
				return err
			}
			fmt.Print(render.Results(results, args[0], isTTY))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain list output even on a terminal")
	return cmd
}

func findCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "find",
		Short: "List sessions by structured filters, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := search.Find(st, flags.options())
			if err != nil {
				return err
			}
			fmt.Print(render.Results(results, "", term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent [n]",
		Short: "Show the most recent sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("invalid count: %s", args[0])
				}
				n = v
			}

			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := search.Recent(st, n)
			if err != nil {
				return err
			}
			fmt.Print(render.Results(results, "", term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}
}
