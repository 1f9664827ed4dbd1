package main

import (
	"fmt"
	"os"

	"github.com/sherpa-assist/sherpa-backend/cmd/sherpactl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "sherpactl",
		Short: "Operational CLI for the Sherpa backend",
		Long:  "Run utterances through the intent engine, search focus items, and manage index reconciliation",
	}

	rootCmd.AddCommand(commands.NewAskCmd())
	rootCmd.AddCommand(commands.NewTranscriptCmd())
	rootCmd.AddCommand(commands.NewSearchCmd())
	rootCmd.AddCommand(commands.NewBacklogCmd())
	rootCmd.AddCommand(commands.NewReconcileCmd())
	rootCmd.AddCommand(commands.NewDeleteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
