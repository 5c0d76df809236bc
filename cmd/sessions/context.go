package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lunar-hook/sessionidx/internal/render"
	"github.com/lunar-hook/sessionidx/internal/search"
)

func contextCmd() *cobra.Command {
	var termFlag string
	var limit, width int

	cmd := &cobra.Command{
		Use:   "context <session-id>",
		Short: "Show a session's exchanges, re-read from the transcript",
		Long: `Reconstruct the conversation for one session. A unique session ID
prefix is enough. With --term, only exchanges mentioning it are shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			id, err := st.ResolveSessionID(args[0])
			if err != nil {
				return err
			}

			cx, err := search.GetContext(st, id, termFlag, limit)
			if err != nil {
				return err
			}

			isTTY := term.IsTerminal(int(os.Stdout.Fd()))
			if width == 0 && isTTY {
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					width = w
				}
			}
			fmt.Print(render.Context(cx, width, isTTY))
			return nil
		},
	}

	cmd.Flags().StringVar(&termFlag, "term", "", "Only exchanges containing this term")
	cmd.Flags().IntVar(&limit, "limit", 10, "Max exchanges to show (0 = all)")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = terminal width)")
	return cmd
}
