package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a store at the given path",
	Long:  `Create the store layout at --path for the selected adapter, ready for use.`,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := newService(); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Initialized %s store at %s\n", adapterName, storePath)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
