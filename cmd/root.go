package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "desklookup",
	Short: "Support-desk lookup service",
	Long:  `A support-desk lookup service mapping usernames to emails and subscription plan combinations to the accounts holding them, served behind a password-gated HTTP API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
