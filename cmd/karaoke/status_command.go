package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/preflight"
	"karaoke/internal/queue"
	"karaoke/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show external tool availability and queue health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, "External tools:")
				results := preflight.CheckBinaries(cfg)
				results = append(results, preflight.CheckFreeSpace(cfg.Paths.WorkspaceDir, cfg.Render.MinFreeGiB))
				for _, result := range results {
					fmt.Fprintf(out, "  %s %s (%s)\n", statusMark(result.Passed), result.Name, result.Detail)
				}

				fmt.Fprintln(out, "Stages:")
				runner := workflow.NewRunner(cfg, store, logging.NewNop())
				for _, health := range runner.HealthChecks(cmd.Context()) {
					detail := "ready"
					if !health.Ready {
						detail = health.Detail
					}
					fmt.Fprintf(out, "  %s %s (%s)\n", statusMark(health.Ready), health.Name, detail)
				}

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Queue:")
				fmt.Fprintln(out, renderQueueHealthTable(summary))
				return nil
			})
		},
	}
}

func statusMark(ok bool) string {
	pass, fail := "[ok]", "[!!]"
	if stdoutIsTerminal() {
		pass, fail = text.FgGreen.Sprint("✓"), text.FgRed.Sprint("✗")
	}
	if ok {
		return pass
	}
	return fail
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
