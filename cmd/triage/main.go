package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/llm-support-triage/internal/di"
)

var (
	// Global flags
	opts   di.CLIOptions
	output string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Classify support emails and draft replies with an LLM",
	Long: `triage runs customer support emails through the triage pipeline:
validation, classification, context assembly, reply drafting and dispatch.

Configuration is read from --config (or ./config.yaml) and TRIAGE_* environment
variables. Flags override the loaded configuration.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to config file")
	pf.StringVar(&opts.Provider, "provider", "", "LLM provider (openai, gemini, bedrock)")
	pf.StringVar(&opts.Model, "model", "", "Model name for the selected provider")
	pf.StringVar(&opts.History, "history", "", "History store (memory, file, sqlite, mysql, redis)")
	pf.IntVar(&opts.Workers, "workers", 0, "Number of emails processed in parallel")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&opts.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.StringVarP(&output, "output", "o", "table", "Report format (table, json, yaml)")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum entries to show (defaults to history.limit)")
	indexCmd.Flags().BoolVar(&indexSeed, "seed", false, "Index the built-in starter documents")

	rootCmd.AddCommand(runCmd, batchCmd, mboxCmd, indexCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
