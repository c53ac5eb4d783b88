package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/khanglvm/tool-preselect/internal/catalog"
)

// ToolEntry is one tool in an exported catalog.
type ToolEntry struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Group       string    `json:"group"`
	Description string    `json:"description"`
	Model       string    `json:"model,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// NewExportCmd creates the 'export' command.
func NewExportCmd(opts *GlobalOptions) *cobra.Command {
	var format string
	var output string
	var withVectors bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tool catalog for grep/jq search",
		Long: `Write every catalog record as JSON, for offline grep/jq searching or for
loading into another store.

Default output: stdout
Default format: JSONL (one tool per line)`,
		Example: `  # Export to stdout
  tool-preselect export

  # JSON array with embeddings
  tool-preselect export --format json --vectors --output ./catalog.json

Grep usage examples:
  # Find weather tools
  tool-preselect export | grep '"WeatherPlugin"'

  # Count tools per group
  tool-preselect export | jq -r '.group' | sort | uniq -c`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "jsonl" {
				return fmt.Errorf("unknown format %q: use json or jsonl", format)
			}

			ctx := cmd.Context()
			app, err := NewApp(ctx, opts, appNeeds{autoIndex: true})
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := collectEntries(ctx, app.Catalog, withVectors)
			if err != nil {
				return err
			}

			if output == "" {
				return writeIndex(cmd.OutOrStdout(), entries, format)
			}
			if err := exportToFile(entries, output, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d tools to %s\n", len(entries), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format: json or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: stdout)")
	cmd.Flags().BoolVar(&withVectors, "vectors", false, "Include embedding vectors")

	return cmd
}

func collectEntries(ctx context.Context, cat *catalog.Catalog, withVectors bool) ([]ToolEntry, error) {
	records, err := cat.Records(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ToolEntry, 0, len(records))
	for _, r := range records {
		e := ToolEntry{
			ID:          r.ID,
			Tool:        r.Name,
			Group:       r.Group,
			Description: r.Description,
			Model:       r.Model,
		}
		if withVectors {
			e.Embedding = r.Embedding
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// exportToFile writes entries to path under an exclusive lock.
func exportToFile(entries []ToolEntry, path, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	lockFile, err := acquireFileLock(path)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	defer releaseFileLock(lockFile)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := writeIndex(file, entries, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeIndex encodes entries as a JSON array or as JSONL.
func writeIndex(w io.Writer, entries []ToolEntry, format string) error {
	encoder := json.NewEncoder(w)

	if format == "json" {
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		return nil
	}

	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			return fmt.Errorf("failed to encode tool: %w", err)
		}
	}
	return nil
}

// acquireFileLock acquires an exclusive lock on path + ".lock".
func acquireFileLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock (another export in progress?): %w", err)
	}

	return lockFile, nil
}

// releaseFileLock releases the lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	lockPath := lockFile.Name()
	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	lockFile.Close()

	return os.Remove(lockPath)
}
