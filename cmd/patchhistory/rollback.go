package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [id] [patch-id]",
	Short: "Roll a document back to a historical patch",
	Long: `Reconstruct the document state as of the given patch and commit it as
the new current state. History is never rewritten: the rollback itself
appends a new patch.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}

		doc, err := svc.Rollback(context.Background(), args[0], args[1], nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling back: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("rolled back %s to %s\n", doc.ID, args[1])
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
