package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunar-hook/sessionidx/internal/config"
	"github.com/lunar-hook/sessionidx/internal/store"
)

var version = "dev"

// persistent flags, resolved ahead of env and config file
var (
	flagProjectsDir string
	flagDBPath      string
	flagTopicsDir   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sessions",
		Short:   "Index and search coding-session transcripts",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&flagProjectsDir, "projects-dir", "", "Projects directory holding session transcripts")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "", "Path to the index database")
	rootCmd.PersistentFlags().StringVar(&flagTopicsDir, "topics-dir", "", "Directory for current-topic files")

	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(contextCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(topicsCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(synthesizeCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(hookCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(config.Overrides{
		ProjectsDir: flagProjectsDir,
		DBPath:      flagDBPath,
		TopicsDir:   flagTopicsDir,
	})
}

// openStore resolves config and opens the index in one step; most
// commands need both.
func openStore() (config.Config, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("open db: %w", err)
	}
	return cfg, st, nil
}
