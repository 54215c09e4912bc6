package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/storage"
)

func newDocCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc <url>",
		Short: "Generate the documentation for one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			prompt, _ := cmd.Flags().GetString("prompt")
			publishDir, _ := cmd.Flags().GetString("publish-dir")

			var publisher storage.Publisher
			if publishDir != "" {
				dir, err := storage.NewDirPublisher(publishDir)
				if err != nil {
					return err
				}
				publisher = dir
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg, c.logger, publisher)
			if err != nil {
				return err
			}
			defer a.Close()

			q := models.VideoQuery{
				URL:                 args[0],
				MaxTranscriptLength: c.cfg.MaxTranscriptLength,
				IncludeComments:     c.cfg.IncludeComments,
				Language:            c.cfg.Language,
			}
			doc, err := a.service.Generate(ctx, q, prompt)
			if err != nil {
				return errors.New(processor.UserMessage(err))
			}

			if output == "" || output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), doc.Markdown)
			} else {
				if err := os.WriteFile(output, []byte(doc.Markdown), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", output)
			}

			if url := a.service.Publish(ctx, doc); url != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "published", url)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "write the document to this file instead of stdout")
	f.String("prompt", "", "custom summary prompt")
	f.String("publish-dir", "", "also publish the document under this local directory")
	return cmd
}
