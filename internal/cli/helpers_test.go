package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// offlineOptions writes a config using local embeddings and returns options pointing at it.
// backend is "memory" or "sqlite"; sqlite files live under the test's temp dir.
func offlineOptions(t *testing.T, backend string) *GlobalOptions {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")

	cfg := map[string]any{
		"embedding": map[string]any{"provider": "local", "localDimension": 256},
		"storage": map[string]any{
			"backend": backend,
			"path":    filepath.Join(dir, "catalog.db"),
		},
		"settings": map[string]any{"logLevel": "error"},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return &GlobalOptions{ConfigPath: path}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
