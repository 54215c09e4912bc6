package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clobrano/youtubedoc/internal/notifier"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/queue"
	"github.com/clobrano/youtubedoc/internal/watcher"
)

func newWatchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Document every video link dropped into the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			return runWorker(ctx, a)
		},
	}
	addWorkerFlags(cmd)
	return cmd
}

func addWorkerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("inbox-dir", "/data/inbox", "directory watched for .url, .txt and .ytdoc files")
	f.String("output-dir", "/data/output", "directory receiving the generated documents")
	f.String("ntfy-topic", "", "ntfy.sh topic for job notifications")
}

// runWorker processes the inbox until ctx is cancelled.
func runWorker(ctx context.Context, a *app) error {
	cfg := a.cfg
	for _, dir := range []string{cfg.InboxDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := checkWritePermission(cfg.OutputDir); err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}

	queuePath := filepath.Join(cfg.OutputDir, ".queue.json")
	q, err := queue.New(queuePath)
	if err != nil {
		return err
	}
	a.logger.Info("queue initialized", slog.String("persistence", queuePath), slog.Int("pending", q.PendingCount()))

	ntfy := notifier.New(cfg.NtfyTopic)
	if ntfy != nil {
		a.logger.Info("notifier initialized", slog.String("topic", cfg.NtfyTopic))
	}

	proc := processor.New(processor.WorkerConfig{
		OutputDir:           cfg.OutputDir,
		Language:            cfg.Language,
		MaxTranscriptLength: cfg.MaxTranscriptLength,
	}, q, a.service, ntfy, a.logger)
	proc.Start()

	w, err := watcher.New(cfg.InboxDir, q, a.logger)
	if err != nil {
		proc.Stop()
		return err
	}
	if err := w.Start(); err != nil {
		proc.Stop()
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down inbox worker")
	if err := w.Stop(); err != nil {
		a.logger.Warn("failed to stop watcher", slog.String("error", err.Error()))
	}
	proc.Stop()
	return nil
}

func checkWritePermission(dir string) error {
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}
