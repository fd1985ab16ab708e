package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/config"
	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/watch"
	"github.com/dyluth/papernet/pkg/paper"
)

var (
	watchOutputFormat string
	waitState         string
	waitTimeout       time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream paper operations as they commit",
	Long: `Stream paper operations as they commit on a shared Redis ledger.

Only operations committed while watch is running are shown. Requires the
redis backend.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  papernet watch
  papernet watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var waitCmd = &cobra.Command{
	Use:   "wait IMPORTER PAPER_NUMBER",
	Short: "Wait until a paper reaches a state",
	Long: `Poll the ledger until a paper reaches the given state, then print it.

Fails if the paper ends in a different terminal state or the timeout passes.
Works with every backend.

Examples:
  papernet wait ACME 1 --state CONFIRMED --timeout 5m`,
	Args: cobra.ExactArgs(2),
	RunE: runWait,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	waitCmd.Flags().StringVar(&waitState, "state", "", "State to wait for (required)")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", time.Minute, "How long to wait")
	_ = waitCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(watchCmd, waitCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.redis == nil {
		return printer.Error(
			"watch requires the redis backend",
			fmt.Sprintf("%s uses the %s backend, which does not publish events.", configPath, sess.cfg.Ledger.Backend),
			[]string{
				"Poll a single paper instead: papernet wait IMPORTER PAPER_NUMBER --state <STATE>",
				"Switch to a shared ledger: papernet init --force --backend " + config.BackendRedis,
			},
		)
	}

	sub, err := sess.redis.SubscribePaperEvents(ctx)
	if err != nil {
		return printer.Error("failed to subscribe", err.Error(), nil)
	}
	defer sub.Close()

	if outputFormat == watch.OutputFormatDefault {
		printer.Info("Watching instance '%s' (Ctrl+C to stop)\n", sess.redis.InstanceName())
	}

	return watch.StreamEvents(ctx, sub, outputFormat, printer.Out())
}

func runWait(cmd *cobra.Command, args []string) error {
	importer, n, err := parsePaperID(args)
	if err != nil {
		return err
	}

	want := paper.State(waitState)
	if err := want.Validate(); err != nil {
		return printer.Error("invalid state", err.Error(),
			[]string{"Valid states: " + joinStates(paper.States)})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, ctx, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := watch.PollForState(ctx, sess.contract, importer, n, want, waitTimeout)
	if err != nil {
		return printer.Error(fmt.Sprintf("paper %s %d did not reach %s", importer, n, want), err.Error(), nil)
	}

	printer.Success("Paper %s %d is %s\n", p.Importer(), p.PaperNumber(), printer.State(p.State()))
	return nil
}
