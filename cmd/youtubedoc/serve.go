package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/clobrano/youtubedoc/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			withWatcher, _ := cmd.Flags().GetBool("watch")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(server.Config{
				Addr:           c.cfg.ListenAddr,
				IndexRateLimit: c.cfg.IndexRateLimit,
				VideoRateLimit: c.cfg.VideoRateLimit,
				TrustProxy:     c.cfg.TrustProxy,
				Cache:          a.cache,
				Logger:         c.logger,
			}, a.service)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(ctx) })
			if withWatcher {
				g.Go(func() error { return runWorker(ctx, a) })
			}
			return g.Wait()
		},
	}

	f := cmd.Flags()
	f.String("listen", ":8000", "address to listen on")
	f.Int("index-rate-limit", 10, "index form submissions per minute and client IP")
	f.Int("video-rate-limit", 5, "video submissions per minute and client IP")
	f.Bool("trust-proxy", false, "key rate limits on the first X-Forwarded-For hop")
	f.Bool("watch", false, "also process the inbox directory")
	addWorkerFlags(cmd)
	return cmd
}
