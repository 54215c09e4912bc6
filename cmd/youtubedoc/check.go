package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url...]",
		Short: "Recognize YouTube video links and print their ids",
		Long: `Recognize YouTube video links and print one line per input:

  valid    <id>  <canonical url>
  invalid  <input>

With no arguments the inputs are read from stdin, one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			inputs := args
			if len(inputs) == 0 {
				var err error
				if inputs, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			invalid := 0
			for _, in := range inputs {
				res := youtubeurl.Recognize(in)
				if !res.Valid {
					invalid++
				}
				if asJSON {
					if err := enc.Encode(checkLine{Input: in, Result: res}); err != nil {
						return err
					}
					continue
				}
				if res.Valid {
					fmt.Fprintf(out, "valid\t%s\t%s\n", res.VideoID, res.CanonicalURL)
				} else {
					fmt.Fprintf(out, "invalid\t%s\n", in)
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d inputs are not YouTube video links", invalid, len(inputs))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print one JSON object per input")
	return cmd
}

type checkLine struct {
	Input string `json:"input"`
	youtubeurl.Result
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
