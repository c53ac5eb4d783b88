/*
Package main is the entry point for tool-preselect CLI.

tool-preselect picks the few tools that fit a natural-language request out of a
large catalog, so an agent only sees those tools in its context. It compares
two pipelines: matching the request directly, and matching a hypothetical tool
description (HyDE) written by an LLM.

Usage:
  tool-preselect [command]

Available Commands:
  repl        Match requests interactively (default)
  match       Select the tools for one request
  benchmark   Measure selection accuracy: direct vs HyDE
  index       Embed the toolset into the catalog
  list        List the tools registered in the catalog
  export      Export the tool catalog for grep/jq search
  serve       Run the MCP server (stdio transport)
  history     Show recent searches and benchmark runs
  init        Write a default configuration file
  version     Show version information

Examples:
  # Interactive loop
  tool-preselect

  # Run as MCP server
  tool-preselect serve

  # Offline, with local hashing embeddings
  tool-preselect init --local && tool-preselect match "reverse this text"
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-preselect/internal/cli"
	"github.com/khanglvm/tool-preselect/internal/config"
	"github.com/khanglvm/tool-preselect/internal/version"
)

// Version information (set via ldflags during build)
var (
	buildVersion = "dev"
	commit       = "none"
	date         = "unknown"
)

func main() {
	version.Version, version.Commit, version.Date = buildVersion, commit, date

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := &cli.GlobalOptions{}
	replCmd := cli.NewReplCmd(opts)

	rootCmd := &cobra.Command{
		Use:   "tool-preselect",
		Short: "Pre-select the tools an agent needs for a request",
		Long: `tool-preselect matches a natural-language request against a catalog of
tool descriptions using embeddings, and returns only the tools that fit.

Two pipelines are compared:
  • Direct - the request is embedded as typed
  • HyDE   - an LLM first rewrites the request into a hypothetical tool
             description, which is embedded instead

Run without a command to start the interactive loop.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          replCmd.RunE,
	}
	opts.BindFlags(rootCmd)

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(cli.NewMatchCmd(opts))
	rootCmd.AddCommand(cli.NewBenchmarkCmd(opts))
	rootCmd.AddCommand(cli.NewIndexCmd(opts))
	rootCmd.AddCommand(cli.NewListCmd(opts))
	rootCmd.AddCommand(cli.NewExportCmd(opts))
	rootCmd.AddCommand(cli.NewServeCmd(opts))
	rootCmd.AddCommand(cli.NewHistoryCmd(opts))
	rootCmd.AddCommand(cli.NewInitCmd(opts))
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
