package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/bbseed/internal/cli"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the classification log",
	Long: `Checks that the classification log agrees with the checkpoint counters.
With --seed-db it also checks that the undecided machines of a 5-state log are
exactly the machines of the published seed database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		seedDB, _ := cmd.Flags().GetString("seed-db")
		return cli.Verify(cmd.Context(), cli.VerifyOptions{
			Config: cfg,
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
			SeedDB: seedDB,
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("seed-db", "", "Seed database zip to compare against")
}
