package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/bbseed/internal/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint of a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		return cli.Status(cmd.Context(), cli.StatusOptions{
			Config: cfg,
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
			All:    all,
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("all", "a", false, "List every stored run")
}
