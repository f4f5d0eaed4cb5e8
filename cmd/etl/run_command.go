package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Link every job in the manifest once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.newApp()
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.pipeline.Run(cmd.Context(), a.jobs)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(report.Jobs))
			}
			return nil
		},
	}
}
