package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/report"
)

var queryCmd = &cobra.Command{
	Use:   "query IMPORTER PAPER_NUMBER",
	Short: "Show a paper",
	Long: `Show the stored form of a paper as JSON. Nothing is written to the ledger.

Examples:
  papernet query ACME 1
  papernet query ACME 1 | jq -r .currentState`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	importer, n, err := parsePaperID(args)
	if err != nil {
		return err
	}

	sess, ctx, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := sess.contract.Query(ctx, importer, n)
	if err != nil {
		return reportError("query", importer, n, err)
	}

	return report.FormatSingleJSON(printer.Out(), p)
}
