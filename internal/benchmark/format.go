package benchmark

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	hitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// FormatAccuracy renders accuracy as a percentage, or "n/a" for NaN.
func FormatAccuracy(accuracy float64) string {
	if math.IsNaN(accuracy) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", accuracy*100)
}

// FormatLatency renders a latency in milliseconds.
func FormatLatency(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

// FormatReport renders the summary table and, when detail > 0, the top detail
// candidates of each case per pipeline.
func FormatReport(report *Report, detail int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("TOOL PRE-SELECTION BENCHMARK"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%d cases in %s\n\n", report.Cases, report.Elapsed.Round(time.Millisecond)))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Pipeline", "Accuracy", "Hits", "Failures", "Mean latency")

	for _, p := range report.Pipelines() {
		t.Row(
			p.Name,
			FormatAccuracy(p.Accuracy),
			fmt.Sprintf("%d/%d", p.Hits, p.Total),
			fmt.Sprintf("%d", p.Failures),
			FormatLatency(p.MeanLatency),
		)
	}
	sb.WriteString(t.String())
	sb.WriteString("\n")

	if c := report.Context; c != nil {
		sb.WriteString(fmt.Sprintf("\nContext (%s): %d tools ~%d tokens -> %.1f candidates ~%d tokens (%.1f%% less)\n",
			c.Pipeline, c.CatalogTools, c.CatalogTokens, c.MeanCandidates, c.CandidateTokens, c.SavingsPercent))
	}

	if detail > 0 {
		for _, p := range report.Pipelines() {
			sb.WriteString("\n")
			sb.WriteString(titleStyle.Render(strings.ToUpper(p.Name) + " RESULTS"))
			sb.WriteString("\n")
			for i, r := range p.Results {
				writeCase(&sb, i, r, detail)
			}
		}
	}

	return sb.String()
}

func writeCase(sb *strings.Builder, index int, r CaseResult, detail int) {
	mark := missStyle.Render("MISS")
	if r.Hit {
		mark = hitStyle.Render("HIT ")
	}
	sb.WriteString(fmt.Sprintf("%3d. %s expected %s  %s\n", index+1, mark, r.Expected, dimStyle.Render(FormatLatency(r.Latency))))
	sb.WriteString(fmt.Sprintf("     query: %s\n", truncate(r.Query, 100)))
	if r.Rewritten != "" {
		sb.WriteString(fmt.Sprintf("     rewritten: %s\n", truncate(r.Rewritten, 100)))
	}
	if r.Err != "" {
		sb.WriteString(fmt.Sprintf("     error: %s\n", r.Err))
		return
	}
	if len(r.Candidates) == 0 {
		sb.WriteString("     - No matches found\n")
		return
	}
	for i, c := range r.Candidates {
		if i == detail {
			break
		}
		sb.WriteString(fmt.Sprintf("     - %s (%s): %.3f\n", c.Name, c.Group, c.Score))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
