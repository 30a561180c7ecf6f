// Package cli defines Cobra command definitions for the querymesh CLI.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/querymesh/config"
)

var version = "dev" // set via ldflags at build time

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "querymesh",
		Short: "Conversational analytics over your data sources",
		Long: `querymesh keeps multi-turn analytics sessions. Each question is either
sent to the analysis engine or answered from the conversation so far, and
long conversations are condensed into a rolling summary.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}

	root.AddCommand(newSessionCmd(load))
	root.AddCommand(newAskCmd(load))

	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
