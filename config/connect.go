package config

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/db/postgres"
	"github.com/dekarrin/potluck/db/sqlite"
)

// Connector opens a pool of connections to the database described by a
// DatabaseConfig.
type Connector func(ctx context.Context, cfg potluck.DatabaseConfig) (*db.Pool, error)

// ConnectorRegistry holds registered connector functions for opening
// connection pools on databases.
//
// The zero value can be immediately used and will have the built-in default
// connectors for SQLite and PostgreSQL available. This can be disabled by
// setting DisableDefaults to true before attempting to use it.
type ConnectorRegistry struct {
	DisableDefaults bool
	reg             map[potluck.DBType]map[string]Connector
}

func (cr *ConnectorRegistry) initDefaults() {
	if cr.reg == nil {
		cr.reg = map[potluck.DBType]map[string]Connector{
			potluck.DatabaseSQLite:   {},
			potluck.DatabasePostgres: {},
		}

		if !cr.DisableDefaults {
			cr.reg[potluck.DatabaseSQLite]["*"] = func(ctx context.Context, cfg potluck.DatabaseConfig) (*db.Pool, error) {
				conn, err := sqlite.Open(ctx, cfg.DataDir, cfg.DataFile)
				if err != nil {
					return nil, fmt.Errorf("initialize sqlite: %w", err)
				}

				// sqlite allows only one writer at a time; more open
				// connections just means more busy errors.
				maxOpen := cfg.MaxOpenConns
				if maxOpen == 0 {
					maxOpen = 1
				}
				return db.NewPool(conn, sqlite.Dialect{}, maxOpen), nil
			}
			cr.reg[potluck.DatabasePostgres]["*"] = func(ctx context.Context, cfg potluck.DatabaseConfig) (*db.Pool, error) {
				conn, err := postgres.Open(ctx, cfg.DSN)
				if err != nil {
					return nil, fmt.Errorf("initialize postgres: %w", err)
				}
				return db.NewPool(conn, postgres.Dialect{}, cfg.MaxOpenConns), nil
			}
		}
	}
}

// Register adds a connector for an engine under the given name. A config
// selects it by setting Connector to that name. The name "*" replaces the
// default connector of the engine.
func (cr *ConnectorRegistry) Register(engine potluck.DBType, name string, connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector function cannot be nil")
	}

	cr.initDefaults()

	engConns, ok := cr.reg[engine]
	if !ok {
		return fmt.Errorf("%q is not a supported DB type", engine)
	}

	normName := strings.ToLower(name)
	if _, ok := engConns[normName]; ok && normName != "*" {
		return fmt.Errorf("duplicate connector registration; %q/%q already has a registered connector", engine, normName)
	}

	engConns[normName] = connector
	return nil
}

// List returns an alphabetized list of all currently registered connector
// names for an engine.
func (cr *ConnectorRegistry) List(engine potluck.DBType) []string {
	cr.initDefaults()

	engConns := cr.reg[engine]

	names := make([]string, 0, len(engConns))
	for k := range engConns {
		names = append(names, k)
	}

	sort.Strings(names)
	return names
}

// Connect opens a connection pool to the configured database using the
// connector the config names, or the engine's default connector if it names
// none.
func (cr *ConnectorRegistry) Connect(ctx context.Context, cfg potluck.DatabaseConfig) (*db.Pool, error) {
	cr.initDefaults()

	engConns, ok := cr.reg[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%q is not a supported DB type", cfg.Type)
	}

	normName := strings.ToLower(cfg.Connector)
	connector, ok := engConns[normName]
	if !ok {
		connector, ok = engConns["*"]
		if !ok {
			var additionalInfo = "DB does not specify connector"
			if normName != "" && normName != "*" {
				additionalInfo = fmt.Sprintf("%q/%q is not a registered connector", cfg.Type, normName)
			}
			return nil, fmt.Errorf("%s and %q has no default \"*\" connector registered", additionalInfo, cfg.Type)
		}
	}

	return connector(ctx, cfg)
}
