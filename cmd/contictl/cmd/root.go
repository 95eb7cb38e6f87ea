// Package cmd provides CLI commands for contictl.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"conti/internal/cli"
	"conti/internal/config"
	"conti/internal/log"
	"conti/internal/services"
)

// app carries global flags and the logger of the running command.
type app struct {
	dbPath  string
	envFile string
	debug   bool

	logger *log.Logger
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "contictl",
		Short: "Inspect and edit a conti ledger",
		Long: `contictl works directly on a SQLite ledger file.

Example:
  contictl migrate --db ./data/conti.db
  contictl account add "Work card" --kind reimbursable
  contictl tx add --account 2 --date 2024-03-01 --amount -12,50 --category Lunch
  contictl search --type expense --sort amount --desc
  contictl reconcile 2`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.envFile != "" {
				cli.LoadEnvFile(a.envFile)
			} else {
				cli.LoadEnvFile()
			}
			level := "warn"
			if a.debug {
				level = "debug"
			}
			a.logger = cli.SetupLoggerTo(cmd.ErrOrStderr(), level)
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "ledger file (default SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.envFile, "env", "", "env file (default .env)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.migrateCmd(),
		a.accountsCmd(),
		a.accountCmd(),
		a.categoryCmd(),
		a.txCmd(),
		a.searchCmd(),
		a.reconcileCmd(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// config loads the environment config for a local sqlite ledger. The CLI
// needs none of the broker or export settings, so only the ledger fields
// are checked.
func (a *app) config() (*config.Config, error) {
	cfg := config.Load()
	cfg.DataBackend = "sqlite"
	if a.dbPath != "" {
		cfg.SQLiteDBPath = a.dbPath
		cfg.LedgerDir = filepath.Dir(a.dbPath)
	}
	if cfg.SQLiteDBPath == "" {
		return nil, fmt.Errorf("no ledger file: pass --db or set SQLITE_DB_PATH")
	}
	return cfg, nil
}

// open opens the ledger for the running command. Callers close it.
func (a *app) open(cmd *cobra.Command) (*services.LedgerService, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return cli.OpenLedger(cmd.Context(), cfg, a.logger)
}
