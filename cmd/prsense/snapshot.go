package main

import (
	"context"
	"fmt"

	"github.com/prsense-labs/prsense/internal/storage"
	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "snapshot",
		Short: "Export the detector's in-memory state, or summarize a snapshot file",
	}

	sc.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write a snapshot of the current state to file",
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

			snap := d.ExportState()
			if err := storage.WriteSnapshotFile(args[0], snap); err != nil {
				return err
			}
			fmt.Printf("wrote %d records to %s\n", len(snap.Records), args[0])
			return nil
		},
	})

	sc.AddCommand(&cobra.Command{
		Use:   "restore [file]",
		Short: "Print a summary of what restoring file would load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := storage.ReadSnapshotFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d records, bloom export %d bytes (base64)\n", len(snap.Records), len(snap.Bloom))
			return nil
		},
	})

	return sc
}
