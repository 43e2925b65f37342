package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/bbseed"
)

// Version is the version of the binary.
var Version = bbseed.Version

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bbseed",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bbseed version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
