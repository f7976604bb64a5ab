package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "kartta",
		Short: "Cloud Resource Survey Engine",
		Long: `Kartta - Cloud Resource Survey Engine

Kartta crawls your cloud accounts and builds a queryable survey of
everything it finds: instances, keys, zones, tables, queues and more,
across every account and region you configure.

Resource types declare what they depend on, so asking for one type
pulls in everything needed to describe it. Compliance checks run
against the surveyed data and their verdicts are recorded per resource.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Kartta {{.Version}} - Cloud Resource Survey Engine
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "kartta.yaml", "Path to configuration file")
}
