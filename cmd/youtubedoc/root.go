package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clobrano/youtubedoc/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli carries what PersistentPreRunE loaded to the subcommands.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "youtubedoc",
		Short:         "Turn YouTube videos into Markdown documentation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogJSON)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			c.cfg = cfg
			c.logger = logger
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "output logs in JSON")
	pf.String("language", "en", "preferred transcript language")
	pf.Int("max-transcript-length", 10_000_000, "maximum transcript length in characters")
	pf.Bool("include-comments", false, "include top comments (needs YOUTUBE_API_KEY)")
	pf.Duration("fetch-timeout", 30*time.Second, "timeout for each YouTube request")
	pf.String("http-proxy", "", "proxy for http requests to YouTube")
	pf.String("https-proxy", "", "proxy for https requests to YouTube")
	pf.String("s3-bucket", "", "publish documents to this S3 bucket")
	pf.String("s3-region", "us-east-1", "region of the S3 bucket")
	pf.String("redis-url", "", "redis URL for the shared documentation cache")
	pf.Duration("cache-ttl", time.Hour, "documentation cache TTL")
	pf.String("llm-provider", "none", "summary provider (none, claude, gemini)")
	pf.String("llm-model", "", "summary model (default depends on provider)")

	root.AddCommand(
		newServeCmd(c),
		newWatchCmd(c),
		newDocCmd(c),
		newCheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "youtubedoc", version)
			return nil
		},
	}
}
