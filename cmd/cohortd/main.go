// Command cohortd serves the cohort partitioner over HTTP and NATS.
//
// Usage:
//
//	cohortd serve --config cohortd.yaml
//	cohortd partition submissions.json
//	cat submissions.json | cohortd partition --ids
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cohortd",
		Short: "cohortd - peer-group partitioning for scored submissions",
		Long: `cohortd groups scored submissions into peer groups of exactly four,
ordered by complexity, padding short cohorts with "Bot" copies of the
lowest-scoring submissions.

Run "cohortd serve" to start the HTTP (and optional NATS) service, or
"cohortd partition" to partition a JSON file from the command line.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newPartitionCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
