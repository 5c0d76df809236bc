package main

import (
	"github.com/spf13/cobra"

	"github.com/lunar-hook/sessionidx/internal/topic"
)

func hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook <event> <session-id>",
		Short: "Handle a session lifecycle event (topic capture)",
		Long: `Invoked by session lifecycle hooks. Events:
  UserPromptSubmit  periodic topic capture every few exchanges
  PreCompact        capture before context compaction
  SessionEnd        final capture plus re-index of the session

Unknown events are ignored so hook configs can stay ahead of the binary.`,
		Args:   cobra.ExactArgs(2),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := topic.HandleHook(st, cfg, args[0], args[1]); err != nil {
				return err
			}
			if args[0] == topic.EventSessionEnd {
				return topic.ClearState(args[1])
			}
			return nil
		},
	}
	return cmd
}
