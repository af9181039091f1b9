package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents",
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}

		docs, err := svc.List(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing documents: %v\n", err)
			os.Exit(1)
		}

		for _, doc := range docs {
			fmt.Println(doc.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
