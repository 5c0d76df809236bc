package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Index summary: row counts and date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetStats()
			if err != nil {
				return err
			}

			fmt.Printf("Sessions:        %d\n", s.Sessions)
			if s.EarliestStart != "" {
				fmt.Printf("Date range:      %s .. %s\n", s.EarliestStart, s.LatestStart)
			}
			fmt.Printf("Topics:          %d (in %d sessions)\n", s.Topics, s.SessionsWithTopic)
			fmt.Printf("Distinct tools:  %d\n", s.DistinctTools)
			fmt.Printf("Distinct agents: %d\n", s.DistinctAgents)
			fmt.Printf("Content rows:    %d\n", s.ContentRows)
			return nil
		},
	}
}
