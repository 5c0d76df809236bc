package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunar-hook/sessionidx/internal/indexer"
)

func indexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index [session-id]",
		Short: "Index session transcripts into the search database",
		Long: `Scan the projects directory and bring the index up to date. Unchanged
files are skipped, deleted files are pruned. With a session ID, only that
session is indexed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				id, err := st.ResolveSessionID(args[0])
				if err != nil {
					id = args[0] // not indexed yet, try as-is
				}
				if err := indexer.IndexSession(st, cfg, id, force); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Indexed %s\n", id)
				return nil
			}

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.ProjectsDir)
			stats, err := indexer.IndexAll(cmd.Context(), st, cfg)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-index even when the file is unchanged")
	return cmd
}
