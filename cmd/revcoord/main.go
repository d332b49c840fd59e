package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "revcoord",
		Short: "Review Coordinator - PR review comment coordination",
		Long: `Review Coordinator normalizes review comments from AI review agents,
detects which agents have already reviewed a pull request, and coordinates
resolver agents over file partitions so no two agents work the same file.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
