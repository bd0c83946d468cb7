package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/internal/config"
)

// newClipsCmd builds "citabot clips", which lists the clip inventory the
// bot would offer.
func newClipsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clips [dir]",
		Short: "List the playable clips",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dir := cfg.Sounds.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			inv := clips.NewInventory(dir, cfg.Sounds.Extension)
			n, err := inv.Reload()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, c := range inv.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, humanize.IBytes(uint64(c.Size)), humanize.Time(c.ModTime))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d clip(s) in %s\n", n, dir)
			return nil
		},
	}
}
