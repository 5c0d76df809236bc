package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lunar-hook/sessionidx/internal/render"
)

func topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics <session-id>",
		Short: "Show a session's captured topic timeline",
		Args:  cobra.ExactArgs(1),
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
			row, err := st.SessionByID(id)
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("session not found: %s", id)
			}
			topics, err := st.Topics(id)
			if err != nil {
				return err
			}
			fmt.Print(render.Topics(row, topics, term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}
}
