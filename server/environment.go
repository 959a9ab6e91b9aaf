package server

import (
	"context"
	"fmt"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/config"
	"github.com/dekarrin/potluck/db"
)

// Environment contains everything needed to create servers that is not part
// of their config. Creating an Environment prior to config loading allows all
// required external functionality, such as custom database connectors, to be
// properly registered.
//
// The zero-value of Environment is ready to use.
type Environment struct {
	connectors *config.ConnectorRegistry

	// DisableDefaults turns off the built-in database connectors. It must be
	// set before any other method is called.
	DisableDefaults bool
}

func (env *Environment) initDefaults() {
	if env.connectors == nil {
		env.connectors = &config.ConnectorRegistry{DisableDefaults: env.DisableDefaults}
	}
}

// RegisterConnector adds a named way of connecting to databases of the given engine.
// The registered name can then be specified as the connector field of a DB in
// config whose type is the given engine.
func (env *Environment) RegisterConnector(engine potluck.DBType, name string, connector config.Connector) error {
	env.initDefaults()
	return env.connectors.Register(engine, name, connector)
}

// Connectors returns the names of the connectors registered for an engine.
func (env *Environment) Connectors(engine potluck.DBType) []string {
	env.initDefaults()
	return env.connectors.List(engine)
}

// Connect opens a pool on the database described by cfg using the connector
// it selects. Defaults are filled in on cfg first.
func (env *Environment) Connect(ctx context.Context, cfg potluck.DatabaseConfig) (*db.Pool, error) {
	env.initDefaults()
	return env.connectors.Connect(ctx, cfg.FillDefaults())
}

// LoadConfig loads a configuration from file. The format is detected from the
// file extension. Unset values in the returned Config are filled in with their
// defaults, and it is an error if the result is not valid.
func (env *Environment) LoadConfig(file string) (potluck.Config, error) {
	env.initDefaults()

	cfg, err := config.Load(file)
	if err != nil {
		return cfg, err
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// DumpConfig dumps the given config to bytes. If Format is not set on the
// Config, YAML is assumed.
func (env *Environment) DumpConfig(cfg potluck.Config) []byte {
	env.initDefaults()
	return config.Dump(cfg)
}
