package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pashist/patchhistory"
	"github.com/pashist/patchhistory/pkg/core"
)

var setCmd = &cobra.Command{
	Use:   "set [id] [field=value]...",
	Short: "Create or update a document",
	Long: `Set fields on a document, creating it if it does not exist.
Each changed field is recorded in the document's patch history.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		id := args[0]

		doc, err := svc.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "Error loading document: %v\n", err)
				os.Exit(1)
			}
			doc = &patchhistory.Document{ID: id}
		}

		for _, pair := range args[1:] {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				fmt.Fprintf(os.Stderr, "Invalid field assignment %q (want field=value)\n", pair)
				os.Exit(1)
			}
			doc.Set(key, value)
		}

		if err := svc.Save(ctx, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving document: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(doc.ID)
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
