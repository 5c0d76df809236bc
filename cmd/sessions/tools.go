package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lunar-hook/sessionidx/internal/search"
)

func toolsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Tool usage totals across indexed sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			query := `
				SELECT st.tool_name, SUM(st.use_count), COUNT(DISTINCT st.session_id)
				FROM session_tools st
				JOIN sessions s ON s.session_id = st.session_id`
			var args2 []interface{}
			if days > 0 {
				query += ` WHERE s.start_time >= ?`
				args2 = append(args2, search.SinceDays(days))
			}
			query += `
				GROUP BY st.tool_name
				ORDER BY SUM(st.use_count) DESC`

			rows, err := st.Raw().Query(query, args2...)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var tool string
				var uses, sessions int
				if err := rows.Scan(&tool, &uses, &sessions); err != nil {
					return err
				}
				fmt.Printf("%-20s %6d uses  in %d sessions\n", tool, uses, sessions)
			}
			return rows.Err()
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Restrict to the last N days")
	return cmd
}
