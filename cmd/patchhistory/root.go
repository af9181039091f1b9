package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pashist/patchhistory"
)

var (
	verbose     bool
	storePath   string
	adapterName string
	keepPatches bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "patchhistory",
	Short: "Versioned document storage with append-only patch history",
	Long: `Patchhistory records every change to a document as an immutable patch
and can reconstruct or roll back to any prior state by replaying history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storePath, "path", ".", "Store location (directory or database file)")
	rootCmd.PersistentFlags().StringVar(&adapterName, "adapter", "fs", "Storage adapter (fs, badger, sqlite)")
}

// newService builds the versioning service from the persistent flags.
func newService(extra ...patchhistory.Option) (*patchhistory.Service, error) {
	opts := append([]patchhistory.Option{
		patchhistory.WithAdapter(adapterName),
		patchhistory.WithAutoInit(true),
		patchhistory.WithLogger(slog.Default()),
	}, extra...)
	return patchhistory.New(storePath, opts...)
}
