/*
Package cli implements the tool-preselect commands.

Every command shares the persistent flags in GlobalOptions and builds its
components through NewApp, so the wiring from configuration to catalog,
matcher and rewriter lives in one place.
*/
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalOptions holds the root command's persistent flags.
type GlobalOptions struct {
	// ConfigPath overrides ~/.tool-preselect.json.
	ConfigPath string

	// LogLevel overrides settings.logLevel.
	LogLevel string

	// ToolsFile replaces the built-in toolset when the catalog is indexed.
	ToolsFile string

	// NoHistory turns off search history recording.
	NoHistory bool
}

// BindFlags registers the persistent flags on root.
func (o *GlobalOptions) BindFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&o.ConfigPath, "config", "", "Config file (default: ~/.tool-preselect.json)")
	root.PersistentFlags().StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default: settings.logLevel)")
	root.PersistentFlags().StringVar(&o.ToolsFile, "tools", "", "YAML tool definitions to index instead of the built-in toolset")
	root.PersistentFlags().BoolVar(&o.NoHistory, "no-history", false, "Do not record searches in the history database")
}
