package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search [query text]",
		Short: "Semantic search over indexed descriptors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cleanup, err := openDetector()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if err := d.Init(ctx); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			hits, err := d.Search(ctx, args[0], k)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("no matches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tTITLE")
			for _, h := range hits {
				title := h.Title
				if len(title) > 60 {
					title = title[:57] + "..."
				}
				fmt.Fprintf(w, "%d\t%.4f\t%s\n", h.ID, h.Score, title)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 10, "maximum number of hits")
	return cmd
}
