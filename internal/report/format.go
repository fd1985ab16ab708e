package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/timespec"
	"github.com/dyluth/papernet/pkg/paper"
)

// OutputFormat specifies how to format a list of papers.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with truncated text columns
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete papers as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	case "":
		return OutputFormatDefault, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'default' or 'jsonl')", s)
	}
}

// FormatTable writes papers as a table and returns how many rows it wrote.
// scope describes what was listed, e.g. "importer 'ACME'".
func FormatTable(w io.Writer, papers []*paper.ImportPaper, scope string) int {
	if len(papers) == 0 {
		fmt.Fprintf(w, "No papers found for %s\n", scope)
		return 0
	}

	fmt.Fprintf(w, "Papers for %s:\n\n", scope)

	fmt.Fprintf(w, "%-14s %-6s %-14s %-10s %-16s %8s %12s %s\n",
		"IMPORTER", "NO.", "EXPORTER", "SUBMITTED", "CATEGORY", "QTY", "VALUE", "STATE")
	fmt.Fprintf(w, "%-14s %-6s %-14s %-10s %-16s %8s %12s %s\n",
		"--------------", "------", "--------------", "----------", "----------------", "--------", "------------", "---------")

	for _, p := range papers {
		fmt.Fprintf(w, "%-14s %-6s %-14s %-10s %-16s %8d %12s %s\n",
			truncate(p.Importer(), 14),
			strconv.FormatInt(p.PaperNumber(), 10),
			truncate(p.Exporter(), 14),
			formatSubmitted(p.SubmitDateTime()),
			truncate(orDash(p.ProductCategory()), 16),
			p.Quantity(),
			formatValue(p.ProductValue()),
			printer.State(p.State()),
		)
	}

	countMsg := "paper"
	if len(papers) != 1 {
		countMsg = "papers"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(papers), countMsg)

	return len(papers)
}

// FormatJSONL writes each paper in its stored JSON form on its own line.
func FormatJSONL(w io.Writer, papers []*paper.ImportPaper) error {
	for _, p := range papers {
		data, err := p.Serialize()
		if err != nil {
			return fmt.Errorf("failed to marshal paper to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes one paper as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, p *paper.ImportPaper) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal paper to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)

	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatSubmitted shows the calendar date of parseable submit times and
// leaves other values as written, truncated to the column.
func formatSubmitted(s string) string {
	if t, ok := timespec.ParseTimestamp(s); ok {
		return t.Format(timespec.DateLayout)
	}
	return truncate(orDash(s), 10)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
