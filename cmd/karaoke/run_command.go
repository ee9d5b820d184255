package main

import (
	"github.com/spf13/cobra"

	"karaoke/internal/config"
	"karaoke/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every queued video through the pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runQueue(cmd, cfg, store)
			})
		},
	}
}
