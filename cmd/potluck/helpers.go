package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultConfigFile = "potluck.yml"

var flagConf string

// configFlags gives the flags every command uses to find its config.
func configFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("config", pflag.ContinueOnError)
	flags.StringVarP(&flagConf, "config", "c", defaultConfigFile, "Path to configuration file")
	return flags
}

// loadConfig loads the config named by the flags. The default config is used
// if the user did not name a file and the default file does not exist.
func loadConfig(cmd *cobra.Command) (potluck.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(flagConf); errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("%s not found; using default config", flagConf)
			return potluck.Config{}.FillDefaults(), nil
		}
	}

	logger.Debugf("Loading config file %s...", flagConf)
	return env.LoadConfig(flagConf)
}

// withStore connects to the configured database and calls fn with a store and
// a leased connection. Everything is closed once fn returns.
func withStore(ctx context.Context, cfg potluck.Config, fn func(store *dao.Store, q db.Querier) error) error {
	pool, err := env.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	lease, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return fn(dao.New(pool.Dialect(), logging.NoOpLogger{}), lease)
}
