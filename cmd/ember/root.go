package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Ember - streaming chat-completion proxy for local LLM engines",
	Long: `Ember is a streaming proxy that sits between chat clients and a local
LLM inference engine.

It accepts chat-completion requests, streams generated tokens back over
server-sent events, and provides:
  - Content-addressed response caching with TTL freshness
  - Durable session transcripts
  - Per-identity sliding-window admission control
  - Operational counters and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
