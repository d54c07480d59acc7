package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/kvsession"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of kvsession",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kvsession version %s\n", strings.TrimSpace(kvsession.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
