package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-preselect/internal/catalog"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// NewListCmd creates the 'list' command for listing catalog tools.
func NewListCmd(opts *GlobalOptions) *cobra.Command {
	var jsonOutput bool
	var group string
	var keyword string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the tools registered in the catalog",
		Long: `Display the catalog grouped by plugin. With --keyword the catalog is
searched with BM25 instead, without calling any embedding API.`,
		Example: `  tool-preselect list
  tool-preselect ls --group WeatherPlugin
  tool-preselect list --keyword "currency exchange"
  tool-preselect list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx, opts, appNeeds{autoIndex: true})
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Catalog.Records(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if keyword != "" {
				candidates, err := keywordSearch(ctx, records, keyword, group, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, candidates)
				}
				fmt.Fprintf(out, "Keyword matches for %q:\n", keyword)
				printMatches(out, candidates)
				return nil
			}

			records = filterGroup(records, group)
			if jsonOutput {
				entries, err := collectEntries(ctx, app.Catalog, false)
				if err != nil {
					return err
				}
				return writeJSON(out, filterEntries(entries, group))
			}
			printCatalog(out, records, group)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Only tools of this group (case-insensitive)")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Search tools by keyword (BM25)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum keyword matches")

	return cmd
}

// keywordSearch runs a BM25 query over records in a throwaway in-memory index.
// A non-empty group (case-insensitive) scopes the query to that group.
func keywordSearch(ctx context.Context, records []catalog.ToolRecord, text, group string, limit int) ([]search.Candidate, error) {
	indexer, err := search.NewIndexer()
	if err != nil {
		return nil, err
	}
	defer indexer.Close()

	if err := indexer.IndexRecords(records); err != nil {
		return nil, err
	}
	if group == "" {
		return indexer.SearchBM25(ctx, text, limit)
	}

	scoped := filterGroup(records, group)
	if len(scoped) == 0 {
		return []search.Candidate{}, nil
	}
	return indexer.SearchByGroup(ctx, text, scoped[0].Group, limit)
}

func filterGroup(records []catalog.ToolRecord, group string) []catalog.ToolRecord {
	if group == "" {
		return records
	}
	filtered := make([]catalog.ToolRecord, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.Group, group) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func filterEntries(entries []ToolEntry, group string) []ToolEntry {
	if group == "" {
		return entries
	}
	filtered := make([]ToolEntry, 0, len(entries))
	for _, e := range entries {
		if strings.EqualFold(e.Group, group) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// printCatalog writes records grouped by group name, groups sorted.
func printCatalog(w io.Writer, records []catalog.ToolRecord, group string) {
	if len(records) == 0 {
		if group != "" {
			fmt.Fprintf(w, "No tools registered in group '%s'.\n", group)
			return
		}
		fmt.Fprintln(w, "No tools registered.")
		fmt.Fprintln(w, "Run 'tool-preselect index' to build the catalog.")
		return
	}

	byGroup := make(map[string][]catalog.ToolRecord)
	for _, r := range records {
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}
	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	fmt.Fprintf(w, "Registered tools (%d in %d groups):\n\n", len(records), len(groups))
	for _, g := range groups {
		fmt.Fprintf(w, "  %s\n", g)
		for _, r := range byGroup[g] {
			fmt.Fprintf(w, "    %-28s %s\n", r.Name, r.Description)
		}
		fmt.Fprintln(w)
	}
}
