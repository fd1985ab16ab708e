package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/report"
	"github.com/dyluth/papernet/pkg/paper"
)

var (
	matchExporter        string
	matchExporterAddress string
)

var matchCmd = &cobra.Command{
	Use:   "match IMPORTER PAPER_NUMBER",
	Short: "Match an INVOICED paper to its exporter",
	Long: `Match an INVOICED paper. The asserted exporter must be the exporter the
paper was submitted with; the exporter's address is recorded on the paper.

Examples:
  papernet match ACME 1 --exporter DigiBank --exporter-address "9 Dock Rd"`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

// transitionCommand builds a command that applies a plain state transition.
func transitionCommand(action paper.Action, short string, apply func(*paper.Contract, context.Context, string, int64) (*paper.ImportPaper, error)) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s IMPORTER PAPER_NUMBER", action),
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, n, err := parsePaperID(args)
			if err != nil {
				return err
			}
			return runTransition(cmd, action, importer, n, func(c *paper.Contract, ctx context.Context) (*paper.ImportPaper, error) {
				return apply(c, ctx, importer, n)
			})
		},
	}
}

func init() {
	matchCmd.Flags().StringVar(&matchExporter, "exporter", "", "Exporter asserting the match (required)")
	matchCmd.Flags().StringVar(&matchExporterAddress, "exporter-address", "", "Exporter address")
	_ = matchCmd.MarkFlagRequired("exporter")

	rootCmd.AddCommand(
		matchCmd,
		transitionCommand(paper.ActionConfirm, "Confirm a MATCHED paper", (*paper.Contract).Confirm),
		transitionCommand(paper.ActionClear, "Clear a CONFIRMED paper", (*paper.Contract).Clear),
		transitionCommand(paper.ActionCancel, "Cancel a paper that is not FINISHED", (*paper.Contract).Cancel),
		transitionCommand(paper.ActionFinish, "Finish a CONFIRMED paper", (*paper.Contract).Finish),
	)
}

func runMatch(cmd *cobra.Command, args []string) error {
	importer, n, err := parsePaperID(args)
	if err != nil {
		return err
	}
	return runTransition(cmd, paper.ActionMatch, importer, n, func(c *paper.Contract, ctx context.Context) (*paper.ImportPaper, error) {
		return c.Match(ctx, importer, n, matchExporter, matchExporterAddress)
	})
}

func runTransition(cmd *cobra.Command, action paper.Action, importer string, n int64, apply func(*paper.Contract, context.Context) (*paper.ImportPaper, error)) error {
	sess, ctx, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := apply(sess.contract, ctx)
	if err != nil {
		return reportError(action, importer, n, err)
	}

	printer.Success("Paper %s %d is now %s\n", p.Importer(), p.PaperNumber(), printer.State(p.State()))
	return report.FormatSingleJSON(printer.Out(), p)
}
