// Package main provides the cv_builder command: the wizard HTTP API server and
// maintenance commands over the CV store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "cv_builder",
	Short:        "CV builder API server",
	Long:         "cv_builder hosts the back end of the nine-step CV wizard: accounts, stored CVs, wizard sessions with auto-save, review and LaTeX export.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file (CVB_* environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
