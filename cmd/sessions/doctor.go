package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunar-hook/sessionidx/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify paths, DB, FTS5, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Paths ===")
			checkDir("Projects", cfg.ProjectsDir)
			checkDir("Topics", cfg.TopicsDir)

			fmt.Println("\n=== File Scan ===")
			files, err := scan.Root(cfg.ProjectsDir)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				projects := make(map[string]struct{})
				for _, f := range files {
					projects[f.Project] = struct{}{}
				}
				fmt.Printf("  Transcript files: %d\n", len(files))
				fmt.Printf("  Projects:         %d\n", len(projects))
			}

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'sessions index' first)")
				return nil
			}

			_, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetStats()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			fmt.Printf("  Sessions: %d\n", s.Sessions)
			fmt.Printf("  Topics:   %d\n", s.Topics)

			fmt.Println("\n=== FTS5 ===")
			fmt.Printf("  Content rows: %d\n", s.ContentRows)
			if s.ContentRows == s.Sessions {
				fmt.Println("  Status: OK (synced)")
			} else {
				fmt.Printf("  Status: MISMATCH (sessions=%d, fts=%d)\n", s.Sessions, s.ContentRows)
			}

			var fingerprints int
			if err := st.Raw().QueryRow("SELECT COUNT(*) FROM file_index").Scan(&fingerprints); err == nil {
				fmt.Printf("\n=== Fingerprints: %d ===\n", fingerprints)
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
