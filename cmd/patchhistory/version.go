package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pashist/patchhistory"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of patchhistory",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("patchhistory version %s\n", strings.TrimSpace(patchhistory.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
