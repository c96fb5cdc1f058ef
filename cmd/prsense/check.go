package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prsense-labs/prsense/internal/detector"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var title, description, diff, files string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check [id]",
		Short: "Check a descriptor for duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			d, cleanup, err := openDetector()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if err := d.Init(ctx); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			desc := detector.Descriptor{
				ID:          id,
				Title:       title,
				Description: description,
				Diff:        diff,
			}
			if files != "" {
				desc.Files = strings.Split(files, ",")
			}

			result, err := d.CheckDetailed(ctx, desc, detector.Options{DryRun: dryRun})
			if err != nil {
				return err
			}

			fmt.Printf("result:     %s\n", result.Type)
			fmt.Printf("confidence: %.4f\n", result.Confidence)
			if result.HasOriginal {
				fmt.Printf("original:   %d\n", result.OriginalID)
			}
			fmt.Printf("text_sim:   %.4f (weight %.2f)\n", result.Breakdown.TextSim, result.Breakdown.Weights.Text)
			fmt.Printf("diff_sim:   %.4f (weight %.2f)\n", result.Breakdown.DiffSim, result.Breakdown.Weights.Diff)
			fmt.Printf("file_sim:   %.4f (weight %.2f)\n", result.Breakdown.FileSim, result.Breakdown.Weights.File)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "descriptor title (required)")
	cmd.Flags().StringVar(&description, "description", "", "descriptor description")
	cmd.Flags().StringVar(&diff, "diff", "", "diff text")
	cmd.Flags().StringVar(&files, "files", "", "comma-separated file paths")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "don't index the descriptor after checking")
	cmd.MarkFlagRequired("title")
	return cmd
}
