package main

import (
	"fmt"

	"github.com/couchcryptid/species-trend-etl/internal/adapter/tabular"
	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/spf13/cobra"
)

func newSummarizeCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <merged.csv>",
		Short: "Print descriptive statistics for a merged output file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := tabular.ReadEnriched(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(domain.Summarize(records)))
			return nil
		},
	}
}
