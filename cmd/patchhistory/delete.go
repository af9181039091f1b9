package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pashist/patchhistory"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Long: `Delete a document. Its patch history is removed with it unless
--keep-patches is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService(patchhistory.WithRemovePatches(!keepPatches))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		doc, err := svc.Get(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading document: %v\n", err)
			os.Exit(1)
		}

		if err := svc.Remove(ctx, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting document: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&keepPatches, "keep-patches", false, "Keep the patch history after deletion")
}
