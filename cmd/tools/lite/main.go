package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/service/idea"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "lite",
		Short: "Print deterministic lite ideas for a set of snippets",
		Long: `Read snippets (one per line) and print the ideas payload the API
serves when every provider attempt fails. No provider is called.

Examples:
  # Snippets from stdin
  printf 'Onboarding is slow\nPricing page confuses people\n' | lite

  # Snippets from a file
  lite --input snippets.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			snippets, err := readSnippets(r)
			if err != nil {
				return err
			}

			resp, err := idea.LiteIdeas(snippets)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "File with one snippet per line, - for stdin")
	return cmd
}

// readSnippets keeps non-blank lines up to the request snippet limit.
func readSnippets(r io.Reader) ([]string, error) {
	var snippets []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		snippets = append(snippets, line)
		if len(snippets) == constants.RequestLimits.SnippetsMax {
			break
		}
	}
	return snippets, scanner.Err()
}
