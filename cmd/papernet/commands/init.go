package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dyluth/papernet/internal/config"
	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/sqlitestore"
)

var (
	forceInit     bool
	initBackend   string
	initRedisURL  string
	initInstance  string
	initPrincipal string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a papernet ledger",
	Long: `Initialize a papernet ledger with default configuration.

Creates:
  • papernet.yml - Ledger and policy configuration
  • papernet.db  - The SQLite ledger (sqlite backend only)

The default policy lets any principal perform every action. Edit the policy
section of papernet.yml to restrict actions to named principals.

Use --force to overwrite an existing papernet.yml (the ledger itself is kept).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing papernet.yml")
	initCmd.Flags().StringVar(&initBackend, "backend", config.BackendSQLite, "Ledger backend (sqlite or redis)")
	initCmd.Flags().StringVar(&initRedisURL, "redis-url", "redis://localhost:6379", "Redis URL (redis backend only)")
	initCmd.Flags().StringVar(&initInstance, "instance", "default", "Namespace on the Redis server (redis backend only)")
	initCmd.Flags().StringVar(&initPrincipal, "principal", "", "Principal the CLI acts as")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Principal = initPrincipal
	cfg.Ledger.Backend = initBackend

	if initBackend == config.BackendRedis {
		cfg.Ledger.SQLite = nil
		cfg.Ledger.Redis = &config.RedisConfig{URL: initRedisURL, Instance: initInstance}
	}

	if err := config.Write(configPath, cfg, forceInit); err != nil {
		return printer.Error(
			"initialization failed",
			err.Error(),
			[]string{
				"Use a different path: papernet --config other.yml init",
				"Overwrite the existing file: papernet init --force",
			},
		)
	}
	printer.Success("Created %s\n", configPath)

	if cfg.Ledger.Backend == config.BackendSQLite {
		dbPath := cfg.Ledger.SQLite.Path
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(filepath.Dir(configPath), dbPath)
		}
		store, err := sqlitestore.Open(dbPath)
		if err != nil {
			return printer.Error("failed to create ledger", err.Error(), nil)
		}
		defer store.Close()
		printer.Success("Created ledger %s\n", dbPath)
	}

	printer.Info("\nNext steps:\n")
	printer.Info("  papernet submit --importer ACME --number 1 --exporter DigiBank\n")
	printer.Info("  papernet list\n")
	return nil
}
