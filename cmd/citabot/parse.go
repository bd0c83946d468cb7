package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/citabot/internal/quote"
)

// newParseCmd builds "citabot parse", which runs the quote parser over a
// JSON message dump and prints the resulting records as YAML.
func newParseCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "parse [dump.json]",
		Short: "Parse a JSON message dump into quote records",
		Long: `Reads a JSON array of messages (id, author_id, author_name, content,
attachments, created_at), oldest first, from the given file or stdin, and
prints the accepted quote records as YAML. Mentions are rendered as
unknown members since no guild is available offline.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open dump: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runParse(cmd, in, author)
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "only print records whose author name contains this")
	return cmd
}

func runParse(cmd *cobra.Command, in io.Reader, author string) error {
	var msgs []quote.Message
	if err := json.NewDecoder(in).Decode(&msgs); err != nil {
		return fmt.Errorf("decode dump: %w", err)
	}

	store := quote.NewStore(quote.NewParser(nil))
	n, err := store.ReloadMessages(cmd.Context(), msgs)
	if err != nil {
		return err
	}
	records := store.Query(author)
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d messages accepted, %d shown\n", n, len(msgs), len(records))

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return enc.Close()
}
