// Package main provides the entry point for the loremaster CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0-dev"
	globalGame string
	globalJSON bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "loremaster",
		Short:         "A DM-gated narrative engine with a relationship perception model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalGame, "game", "g", "", "Game to operate on")
	rootCmd.PersistentFlags().BoolVar(&globalJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newGamesCmd(),
		newGenerateCmd(),
		newAcceptCmd(),
		newEditCmd(),
		newRegenerateCmd(),
		newInjectCmd(),
		newPlaybackCmd(),
		newCharactersCmd(),
		newTraitsCmd(),
		newRelateCmd(),
		newPerceiveCmd(),
		newLabelsCmd(),
		newRelationsCmd(),
		newImportCmd(),
		newViewCmd(),
		newProposalsCmd(),
		newConsoleCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
