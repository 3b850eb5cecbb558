package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/story-squad/cohort"
)

func newPartitionCmd() *cobra.Command {
	var (
		idsOnly  bool
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "partition [file]",
		Short: "Partition a JSON submission list and print the groups",
		Long: `Reads submissions from file (or stdin when file is omitted or "-") and
prints the groups as JSON. The input is either a list
[{"id": ..., "Complexity": ...}, ...] or an object {"submissions": [...]}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			subs, err := decodeSubmissions(data)
			if err != nil {
				return err
			}

			opts, err := cohort.PartitionerConfig{OffsetStrategy: strategy}.Options()
			if err != nil {
				return err
			}

			groups, err := cohort.NewPartitioner(opts...).Partition(subs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !idsOnly {
				return enc.Encode(groups)
			}

			ids := make([][]string, 0, len(groups))
			for _, g := range groups {
				ids = append(ids, g.IDs())
			}

			return enc.Encode(ids)
		},
	}

	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print only submission ids")
	cmd.Flags().StringVar(&strategy, "strategy", cohort.OffsetStrategyRoundRobin,
		"Bot placement strategy (round-robin or front-only)")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	return data, nil
}

func decodeSubmissions(data []byte) ([]cohort.Submission, error) {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var req struct {
			Submissions []cohort.Submission `json:"submissions"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}

		return req.Submissions, nil
	}

	var subs []cohort.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	return subs, nil
}
