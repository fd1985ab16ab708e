package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/config"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath  string
	principalAs string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "papernet",
	Short: "Papernet - import paper lifecycle on a shared ledger",
	Long: `Papernet tracks import papers (trade documents raised by an importer
against an exporter) through their lifecycle on a transactional ledger:

  INVOICED → MATCHED → CONFIRMED → CLEARED | FINISHED
  (any state except FINISHED can be CANCELED)

Every operation runs as one ledger transaction. The ledger is a local SQLite
file or a shared Redis server, selected in papernet.yml.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", config.DefaultPath, "Path to papernet.yml")
	rootCmd.PersistentFlags().StringVar(&principalAs, "as", "", "Principal to act as (overrides 'principal' in papernet.yml)")
}
