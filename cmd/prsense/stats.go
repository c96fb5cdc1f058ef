package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show detector statistics",
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

			s := d.GetStats()
			fmt.Printf("total PRs:        %s\n", humanize.Comma(int64(s.TotalPRs)))
			fmt.Printf("bloom size:       %s bits\n", humanize.Comma(int64(s.BloomSize)))
			fmt.Printf("duplicate pairs:  %s\n", humanize.Comma(int64(s.DuplicatePairs)))
			fmt.Printf("storage backend:  %s\n", s.StorageBackend)
			return nil
		},
	}
}
