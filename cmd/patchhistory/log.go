package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var logAt string

var logCmd = &cobra.Command{
	Use:   "log [id]",
	Short: "Show a document's patch history",
	Long: `Show the patch history of a document in creation order.
With --at, reconstruct and print the document state as of the given patch instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		id := args[0]

		if logAt != "" {
			state, err := svc.StateAt(ctx, id, logAt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reconstructing state: %v\n", err)
				os.Exit(1)
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		patches, err := svc.History(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
			os.Exit(1)
		}

		for _, p := range patches {
			fmt.Printf("%s  %s  %d ops\n", p.ID, p.Date.Local().Format(time.RFC3339), len(p.Ops))
			for _, op := range p.Ops {
				if op.Value != nil {
					fmt.Printf("    %-8s %s = %v\n", op.Kind, op.Path, op.Value)
				} else {
					fmt.Printf("    %-8s %s\n", op.Kind, op.Path)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logAt, "at", "", "Reconstruct the state as of the given patch ID")
}
