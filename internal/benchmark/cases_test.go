package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tool-preselect/internal/catalog"
	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// TestDefaultCases verifies the bundled corpus loads and names only built-in tools.
func TestDefaultCases(t *testing.T) {
	cases := DefaultCases()
	require.Len(t, cases, 60)

	known := make(map[string]bool)
	for _, d := range toolset.Builtin() {
		known[d.Name] = true
	}
	for _, c := range cases {
		assert.True(t, known[c.ExpectedTool], "unknown expected tool %q", c.ExpectedTool)
	}

	assert.Equal(t, "ExtractNumbers", cases[0].ExpectedTool)
	assert.Contains(t, cases[3].Query, `'^WS-\d{4}-[A-Z]{3}$'`)
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cases:\n  - query: reverse this\n    expectedTool: ReverseString\n"), 0o644))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	assert.Equal(t, []Case{{Query: "reverse this", ExpectedTool: "ReverseString"}}, cases)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cases:\n  - query: no tool\n"), 0o644))
	_, err = LoadCases(bad)
	assert.Error(t, err)

	_, err = LoadCases(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestEstimateContext(t *testing.T) {
	records := []catalog.ToolRecord{
		{Name: "A", Description: "Does a thing with a fairly long description"},
		{Name: "B", Description: "Does another thing with a fairly long description"},
		{Name: "C", Description: "Does a third thing with a fairly long description"},
	}
	p := aggregate(PipelineHyDE, []CaseResult{
		{Candidates: []search.Candidate{{Name: "A", Description: records[0].Description}}},
		{Candidates: []search.Candidate{}},
	})

	est := EstimateContext(records, p)
	assert.Equal(t, 3, est.CatalogTools)
	assert.Equal(t, 0.5, est.MeanCandidates)
	assert.Greater(t, est.CatalogTokens, est.CandidateTokens)
	assert.Greater(t, est.SavingsPercent, 50.0)

	empty := EstimateContext(records, aggregate(PipelineHyDE, nil))
	assert.Zero(t, empty.MeanCandidates)
}

func TestFormatReport_Detail(t *testing.T) {
	report := &Report{
		Cases: 1,
		Direct: aggregate(PipelineDirect, []CaseResult{{
			Query:    "find numbers",
			Expected: "ExtractNumbers",
			Hit:      true,
			Candidates: []search.Candidate{
				{Name: "ExtractNumbers", Group: "UtilityPlugin", Score: 0.91},
				{Name: "CountOccurrences", Group: "UtilityPlugin", Score: 0.8},
			},
		}}),
		HyDE: aggregate(PipelineHyDE, []CaseResult{{
			Query: "find numbers", Expected: "ExtractNumbers", Err: "text generation unavailable: 503",
		}}),
	}

	out := FormatReport(report, 1)
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "ExtractNumbers (UtilityPlugin): 0.910")
	assert.NotContains(t, out, "CountOccurrences")
	assert.Contains(t, out, "error: text generation unavailable: 503")
}
