package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/config"
)

// NewInitCmd creates the 'init' command that writes a default configuration.
func NewInitCmd(opts *GlobalOptions) *cobra.Command {
	var force bool
	var local bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to ~/.tool-preselect.json (or --config).

An existing file is kept unless --force is given; it is then backed up to
<path>.bak before being replaced. The API key is read from OPENAI_API_KEY
and is never written to the file.`,
		Example: `  tool-preselect init
  tool-preselect init --local        # offline hashing embeddings
  tool-preselect init --config ./azure.json --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				defaultPath, err := config.GetDefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := config.NewConfig()
			if local {
				cfg.Embedding.Provider = config.ProviderLocal
			}

			logger := zap.NewNop()
			if opts.LogLevel != "" {
				l, err := newLogger(cfg, opts.LogLevel)
				if err != nil {
					return err
				}
				defer l.Sync()
				logger = l
			}

			if err := config.Save(cfg, path, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'tool-preselect index' to build the catalog.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&local, "local", false, "Use local hashing embeddings (no API calls)")

	return cmd
}
