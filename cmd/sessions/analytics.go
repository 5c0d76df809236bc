package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lunar-hook/sessionidx/internal/analytics"
	"github.com/lunar-hook/sessionidx/internal/render"
)

func analyticsCmd() *cobra.Command {
	var client, project string
	var days int
	var week, month bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Usage report: sessions, clients, projects, tools, topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			switch {
			case week:
				days = 7
			case month:
				days = 30
			}

			report, err := analytics.Run(st, analytics.Filter{
				Client:  client,
				Project: project,
				Days:    days,
			})
			if err != nil {
				return err
			}
			fmt.Print(render.Report(report, term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "Restrict to one client")
	cmd.Flags().StringVar(&project, "project", "", "Restrict to one project")
	cmd.Flags().IntVar(&days, "days", 0, "Restrict to the last N days")
	cmd.Flags().BoolVar(&week, "week", false, "Last 7 days")
	cmd.Flags().BoolVar(&month, "month", false, "Last 30 days")
	return cmd
}
