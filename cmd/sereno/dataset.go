package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zyfalo/sereno/internal/dataset"
)

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Training dataset tooling",
	}
	cmd.AddCommand(datasetValidateCmd(), datasetStatsCmd())
	return cmd
}

func datasetValidateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <file.jsonl>",
		Short: "Validate a JSONL training dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := dataset.Validate(f)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(report)
			}

			fmt.Printf("total: %d  valid: %d  invalid: %d\n", report.Total, report.Valid, report.Invalid)
			for _, le := range report.Errors {
				for _, e := range le.Errors {
					fmt.Printf("  line %d: %s\n", le.Line, e)
				}
			}
			if report.Invalid > 0 {
				return fmt.Errorf("%d invalid examples", report.Invalid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func datasetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.jsonl>",
		Short: "Show dataset composition statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stats, err := dataset.Analyze(f)
			if err != nil {
				return err
			}

			fmt.Printf("examples: %d\n", stats.Total)
			fmt.Printf("avg assistant length: %.1f words\n", stats.AvgLength)
			printCounts("by category", stats.ByCategory)
			printCounts("by risk level", stats.ByRiskLevel)
			printCounts("techniques", stats.TechniquesCount)
			return nil
		},
	}
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println(title + ":")
	for _, k := range keys {
		fmt.Printf("  %-16s %d\n", k, counts[k])
	}
}
