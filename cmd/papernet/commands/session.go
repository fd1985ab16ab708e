package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dyluth/papernet/internal/config"
	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/internal/redisstore"
	"github.com/dyluth/papernet/internal/sqlitestore"
	"github.com/dyluth/papernet/pkg/ledger"
	"github.com/dyluth/papernet/pkg/paper"
)

// session is an open ledger plus the contract bound to it.
type session struct {
	cfg      *config.PapernetConfig
	contract *paper.Contract
	redis    *redisstore.Client // nil unless the redis backend is configured
	closer   func() error
}

func (s *session) Close() error {
	return s.closer()
}

// openSession loads the config, opens the configured ledger and returns a
// context carrying the principal the CLI acts as.
func openSession(ctx context.Context) (*session, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	s := &session{cfg: cfg}
	var l ledger.Ledger
	opts := []paper.Option{paper.WithPolicy(cfg.Policy)}

	switch cfg.Ledger.Backend {
	case config.BackendSQLite:
		store, err := sqlitestore.Open(cfg.Ledger.SQLite.Path)
		if err != nil {
			return nil, nil, printer.ErrorWithContext(
				"failed to open ledger",
				err.Error(),
				map[string]string{"backend": config.BackendSQLite, "path": cfg.Ledger.SQLite.Path},
				[]string{"Check that the directory exists and is writable"},
			)
		}
		l = store
		s.closer = store.Close

	case config.BackendRedis:
		client, err := redisstore.NewClientFromURL(cfg.Ledger.Redis.URL, cfg.Ledger.Redis.Instance)
		if err != nil {
			return nil, nil, printer.Error("invalid redis configuration", err.Error(),
				[]string{"Fix ledger.redis in " + configPath})
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, printer.ErrorWithContext(
				"redis is not reachable",
				err.Error(),
				map[string]string{"url": cfg.Ledger.Redis.URL, "instance": cfg.Ledger.Redis.Instance},
				[]string{"Start Redis or fix ledger.redis.url in " + configPath},
			)
		}
		l = client
		s.redis = client
		s.closer = client.Close
		opts = append(opts, paper.WithPublisher(client))
	}

	s.contract = paper.NewContract(l, opts...)

	principal := cfg.Principal
	if principalAs != "" {
		principal = principalAs
	}
	return s, paper.WithCaller(ctx, principal), nil
}

func loadConfig() (*config.PapernetConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, printer.Error(
			fmt.Sprintf("%s not found", configPath),
			"No papernet configuration found.",
			[]string{
				"Initialize a ledger here: papernet init",
				"Point at an existing config: papernet --config path/to/papernet.yml",
			},
		)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error("invalid configuration", err.Error(),
			[]string{"Fix " + configPath + " or recreate it with: papernet init --force"})
	}
	return cfg, nil
}

// parsePaperID parses the IMPORTER PAPER_NUMBER positional arguments.
func parsePaperID(args []string) (string, int64, error) {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || n <= 0 {
		return "", 0, printer.Error(
			"invalid paper number",
			fmt.Sprintf("'%s' is not a positive integer.", args[1]),
			[]string{"Usage: papernet <command> IMPORTER PAPER_NUMBER"},
		)
	}
	return args[0], n, nil
}

// reportError turns a contract error into a formatted CLI error.
func reportError(action paper.Action, importer string, paperNumber int64, err error) error {
	id := fmt.Sprintf("%s %d", importer, paperNumber)

	var transition *paper.IllegalStateTransitionError
	var denied *paper.PermissionDeniedError

	switch {
	case errors.As(err, &transition):
		return printer.ErrorWithContext(
			"illegal state transition",
			fmt.Sprintf("Cannot %s paper %s: it is %s.", action, id, transition.Current),
			map[string]string{"paper": id, "state": string(transition.Current)},
			[]string{"Inspect the paper: papernet query " + id},
		)
	case errors.As(err, &denied):
		return printer.ErrorWithContext(
			"permission denied",
			denied.Reason,
			map[string]string{"action": string(action), "caller": denied.Caller, "paper": id},
			[]string{
				"Act as an allowed principal: papernet --as <principal> ...",
				"Review the policy section of " + configPath,
			},
		)
	case errors.Is(err, ledger.ErrNotFound):
		return printer.Error(
			"paper not found",
			fmt.Sprintf("No paper %s exists on the ledger.", id),
			[]string{"List the importer's papers: papernet list --importer " + importer},
		)
	case errors.Is(err, ledger.ErrDuplicateKey):
		return printer.Error(
			"paper already exists",
			fmt.Sprintf("Paper %s has already been submitted.", id),
			[]string{"Use a new paper number, or inspect it: papernet query " + id},
		)
	case errors.Is(err, paper.ErrInvalidPaper), errors.Is(err, ledger.ErrInvalidKey):
		return printer.Error("invalid paper", err.Error(), nil)
	case errors.Is(err, ledger.ErrConflict):
		return printer.Error(
			"transaction conflict",
			"Another transaction changed the paper while this one ran. Nothing was written.",
			[]string{"Retry the command"},
		)
	case errors.Is(err, ledger.ErrDeserialization):
		return printer.Error("corrupt ledger entry", err.Error(), nil)
	default:
		return printer.Error(fmt.Sprintf("failed to %s paper %s", action, id), err.Error(), nil)
	}
}
