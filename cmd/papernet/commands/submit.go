package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/report"
	"github.com/dyluth/papernet/pkg/paper"
)

var submission paper.Submission

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new import paper",
	Long: `Submit a new import paper. The paper starts INVOICED.

The importer and paper number together identify the paper; submitting the
same pair twice fails and leaves the ledger unchanged.

Examples:
  # Minimal paper
  papernet submit --importer ACME --number 1 --exporter DigiBank

  # Fully described paper
  papernet submit --importer ACME --number 2 --exporter DigiBank \
    --submitted 2024-03-10T09:30:00Z --importer-address "1 Main St" \
    --category electronics --product phone --quantity 12 --value 1999.50`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submission.Importer, "importer", "", "Importer organization (required)")
	submitCmd.Flags().Int64Var(&submission.PaperNumber, "number", 0, "Paper number, unique per importer (required)")
	submitCmd.Flags().StringVar(&submission.Exporter, "exporter", "", "Exporter organization (required)")
	submitCmd.Flags().StringVar(&submission.SubmitDateTime, "submitted", "", "Submission time (default: now, RFC3339)")
	submitCmd.Flags().StringVar(&submission.ImporterAddress, "importer-address", "", "Importer address")
	submitCmd.Flags().StringVar(&submission.ProductCategory, "category", "", "Product category")
	submitCmd.Flags().StringVar(&submission.Product, "product", "", "Product description")
	submitCmd.Flags().Int64Var(&submission.Quantity, "quantity", 0, "Quantity of product")
	submitCmd.Flags().Float64Var(&submission.ProductValue, "value", 0, "Total value of product")
	_ = submitCmd.MarkFlagRequired("importer")
	_ = submitCmd.MarkFlagRequired("number")
	_ = submitCmd.MarkFlagRequired("exporter")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	s := submission
	if s.SubmitDateTime == "" {
		s.SubmitDateTime = time.Now().UTC().Format(time.RFC3339)
	}

	sess, ctx, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := sess.contract.Submit(ctx, s)
	if err != nil {
		return reportError(paper.ActionSubmit, s.Importer, s.PaperNumber, err)
	}

	printer.Success("Submitted paper %s %d (%s)\n", p.Importer(), p.PaperNumber(), printer.State(p.State()))
	return report.FormatSingleJSON(printer.Out(), p)
}
