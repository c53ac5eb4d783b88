package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// NewIndexCmd creates the 'index' command that embeds the toolset into the catalog.
func NewIndexCmd(opts *GlobalOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the toolset into the catalog",
		Long: `Embed every tool description and store it in the catalog.

The built-in toolset is indexed unless --tools names a YAML file. Registering
a tool again adds a new record, so use --reset after changing the toolset or
the embedding model.`,
		Example: `  tool-preselect index
  tool-preselect index --reset
  tool-preselect index --tools ./my-tools.yaml --reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx, opts, appNeeds{})
			if err != nil {
				return err
			}
			defer app.Close()

			defs, err := loadDefinitions(opts.ToolsFile)
			if err != nil {
				return err
			}

			if reset {
				if app.DB == nil {
					app.Logger.Warn("memory backend keeps nothing between runs, --reset has no effect")
				} else if err := app.DB.Reset(ctx); err != nil {
					return err
				}
			}

			n, err := app.Catalog.RegisterAll(ctx, defs)
			if err != nil {
				return fmt.Errorf("indexed %d of %d tools: %w", n, len(defs), err)
			}
			app.Logger.Info("catalog indexed",
				zap.Int("tools", n),
				zap.String("model", app.Catalog.Model()),
			)

			total, err := app.Catalog.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Indexed %d tools in %d groups (%d records in catalog)\n",
				n, len(toolset.GroupNames(defs)), total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all catalog records before indexing")

	return cmd
}
