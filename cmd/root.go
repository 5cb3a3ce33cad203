/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contract-analyzer",
	Short: "Contract compliance analysis server",
	Long: `Analyzes uploaded contract PDFs against a fixed set of security
compliance requirements. Evidence is retrieved with BM25, judged by an LLM
and every quoted passage is verified verbatim against the retrieved text.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config/config.yaml", "config file")
}
