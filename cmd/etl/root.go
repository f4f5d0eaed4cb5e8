package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "species-etl",
		Short:         "Link eBird sightings with Status & Trends abundance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cc.jobsFlag, "jobs", "", "Job manifest (overrides JOBS_FILE)")
	flags.StringVar(&cc.regionFlag, "region", "", "Target region code (overrides TARGET_REGION and the manifest)")
	flags.StringVar(&cc.outputDirFlag, "output-dir", "", "Directory for merged CSV output (overrides OUTPUT_DIR)")

	rootCmd.AddCommand(newRunCommand(cc))
	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newSummarizeCommand(cc))

	return rootCmd
}
