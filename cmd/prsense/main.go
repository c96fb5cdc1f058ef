// Command prsense is a manual-testing harness for the duplicate
// detection core. It is not a service: no webhook transport, no
// GitHub API calls, no process supervision — just enough surface to
// drive check/search/stats against a local store while developing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	storeFlag string
	dsnFlag   string
)

func main() {
	root := &cobra.Command{
		Use:   "prsense",
		Short: "prsense — pull-request duplicate detection core (dev harness)",
		Long:  "Drives the detector core's check/search/stats operations against a local store for manual testing.",
	}
	root.PersistentFlags().StringVar(&storeFlag, "store", "sqlite", "storage backend: memory or sqlite")
	root.PersistentFlags().StringVar(&dsnFlag, "dsn", "prsense.db", "storage DSN (file path for sqlite, ignored for memory)")

	root.AddCommand(
		checkCmd(),
		searchCmd(),
		statsCmd(),
		snapshotCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
