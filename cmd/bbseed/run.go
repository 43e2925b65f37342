package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/bbseed/internal/cli"
	"github.com/aretw0/bbseed/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume the enumeration",
	Long: `Starts the enumeration, or resumes it from the last checkpoint of the run.
The first interrupt checkpoints and exits; a second one exits immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		sm := cli.NewSignalManager(cmd.Context(), logger)
		defer sm.Stop()

		out := cmd.OutOrStdout()
		if !quiet && report.IsTerminal(out) {
			report.PrintBanner(out, Version)
		}
		_, err = cli.Run(sm.Context(), cli.RunOptions{
			Config: cfg,
			Stdout: out,
			Logger: logger,
			Quiet:  quiet,
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print progress lines")
}
