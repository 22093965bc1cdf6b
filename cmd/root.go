package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coinwallet",
	Short: "Coin wallet payments service",
	Long:  "A coin wallet service: PromptPay payment intents, webhook and poll reconciliation, and exactly-once wallet credits.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
