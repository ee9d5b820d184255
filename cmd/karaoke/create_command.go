package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/notifications"
	"karaoke/internal/preflight"
	"karaoke/internal/queue"
	"karaoke/internal/workflow"
)

var videoFileExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var queueOnly bool

	cmd := &cobra.Command{
		Use:   "create <video>",
		Short: "Queue a video and render its karaoke version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := normalizeVideoPath(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if existing, err := store.FindBySourcePath(cmd.Context(), absPath); err == nil && existing != nil {
					// Settled items go back to pending so a rerun always
					// produces an output; fresh cache stamps keep the
					// untouched stages instant.
					requeued, err := store.Requeue(cmd.Context(), existing.ID)
					if err != nil {
						return err
					}
					if requeued {
						fmt.Fprintf(cmd.OutOrStdout(), "Re-queued item #%d (was %s)\n", existing.ID, existing.Status)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Already queued as item #%d (%s)\n", existing.ID, existing.Status)
					}
					if queueOnly {
						return nil
					}
					return runQueue(cmd, cfg, store)
				}

				item, err := store.NewItem(cmd.Context(), absPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item #%d\n", filepath.Base(absPath), item.ID)

				logger, err := logging.NewFromConfig(cfg)
				if err == nil {
					notifier := notifications.NewService(cfg)
					if notifyErr := notifier.NotifyItemQueued(cmd.Context(), item.Title); notifyErr != nil {
						logger.Debug("queue notification failed", logging.Error(notifyErr))
					}
				}

				if queueOnly {
					return nil
				}
				return runQueue(cmd, cfg, store)
			})
		},
	}

	cmd.Flags().BoolVar(&queueOnly, "queue-only", false, "Queue the video without starting the pipeline")
	return cmd
}

// normalizeVideoPath converts backslash separators, resolves the absolute
// path, and enforces the supported container extensions.
func normalizeVideoPath(raw string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	if normalized == "" {
		return "", errors.New("video path required")
	}
	absPath, err := filepath.Abs(filepath.FromSlash(normalized))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file does not exist: %s", absPath)
		}
		return "", fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}

	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := videoFileExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return absPath, nil
}

func runQueue(cmd *cobra.Command, cfg *config.Config, store *queue.Store) error {
	if summary := preflight.Summarize(preflight.CheckBinaries(cfg)); summary != "" {
		return fmt.Errorf("missing dependencies: %s", summary)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	runner := workflow.NewRunner(cfg, store, logger)
	processed, failed, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d item(s), %d failed\n", processed, failed)
	if failed > 0 {
		return fmt.Errorf("%d item(s) failed; inspect `karaoke queue list`", failed)
	}
	return nil
}
