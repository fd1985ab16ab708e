package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/filter"
	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/report"
	"github.com/dyluth/papernet/internal/timespec"
	"github.com/dyluth/papernet/pkg/paper"
)

var (
	listImporter string
	listStates   string
	listExporter string
	listCategory string
	listSince    string
	listUntil    string
	listOutput   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers on the ledger",
	Long: `List papers in key order, optionally filtered.

Filters:
  --importer - Only papers raised by this importer (read as one key range)
  --state    - Comma-separated states, e.g. INVOICED,MATCHED
  --exporter - Exact exporter name
  --category - Glob over product category, e.g. "electronics/*"
  --since    - Submitted at or after this time (duration or RFC3339/date)
  --until    - Submitted at or before this time (duration or RFC3339/date)

Output Formats:
  default - Table with truncated columns
  jsonl   - One stored paper per line

Examples:
  # Everything
  papernet list

  # Open papers of one importer
  papernet list --importer ACME --state INVOICED,MATCHED,CONFIRMED

  # Papers submitted in the last day, as JSON
  papernet list --since 24h --output jsonl | jq .paperNumber`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listImporter, "importer", "i", "", "Filter by importer")
	listCmd.Flags().StringVarP(&listStates, "state", "s", "", "Filter by states (comma-separated)")
	listCmd.Flags().StringVar(&listExporter, "exporter", "", "Filter by exporter")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by product category (glob pattern)")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show papers submitted after time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Show papers submitted before time (duration or RFC3339)")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "default", "Output format (default or jsonl)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := report.ParseOutputFormat(listOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(),
			[]string{"Use --output=default or --output=jsonl"})
	}

	criteria, err := listCriteria(time.Now())
	if err != nil {
		return err
	}

	sess, ctx, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := report.ListPapers(ctx, sess.contract, listImporter, criteria, format, printer.Out()); err != nil {
		return printer.Error("failed to list papers", err.Error(), nil)
	}
	return nil
}

func listCriteria(now time.Time) (*filter.Criteria, error) {
	criteria := &filter.Criteria{
		Exporter:     listExporter,
		CategoryGlob: listCategory,
	}

	if listStates != "" {
		for _, s := range strings.Split(listStates, ",") {
			state := paper.State(strings.ToUpper(strings.TrimSpace(s)))
			if err := state.Validate(); err != nil {
				return nil, printer.Error("invalid state filter", err.Error(),
					[]string{"Valid states: " + joinStates(paper.States)})
			}
			criteria.States = append(criteria.States, state)
		}
	}

	since, until, err := timespec.ParseRange(listSince, listUntil, now)
	if err != nil {
		return nil, printer.Error("invalid time filter", err.Error(),
			[]string{"Use a duration like 2h or a time like 2024-03-10T09:30:00Z"})
	}
	criteria.Since = since
	criteria.Until = until

	return criteria, nil
}

func joinStates(states []paper.State) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
