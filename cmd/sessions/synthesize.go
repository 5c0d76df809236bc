package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lunar-hook/sessionidx/internal/render"
	"github.com/lunar-hook/sessionidx/internal/synthesize"
)

func synthesizeCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "synthesize <query>",
		Short: "Summarize what past sessions say about a topic",
		Long: `Search sessions matching the query, pull their relevant exchanges and
ask a model for a cross-session summary. Requires ANTHROPIC_API_KEY; without
it the matching sessions are still listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := synthesize.Run(cmd.Context(), st, synthesize.Options{
				Query: args[0],
				Limit: limit,
			})
			if err != nil {
				if res == nil || len(res.Sources) == 0 {
					return err
				}
				// show sources even when the model call is unavailable
				fmt.Print(render.Synthesis(res, term.IsTerminal(int(os.Stdout.Fd()))))
				if errors.Is(err, synthesize.ErrNoAPIKey) {
					fmt.Fprintln(os.Stderr, "\nSet ANTHROPIC_API_KEY to enable synthesis.")
					return nil
				}
				return err
			}
			fmt.Print(render.Synthesis(res, term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Max sessions to draw excerpts from")
	return cmd
}
