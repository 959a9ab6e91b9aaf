package potluck

import (
	"fmt"
	"strings"
	"time"
)

// DBType is the type of a Database connection.
type DBType string

func (dbt DBType) String() string {
	return string(dbt)
}

const (
	DatabaseNone     DBType = "none"
	DatabaseSQLite   DBType = "sqlite"
	DatabasePostgres DBType = "postgres"
)

// ParseDBType parses a string found in config into a DBType.
func ParseDBType(s string) (DBType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case DatabaseSQLite.String(), "sqlite3":
		return DatabaseSQLite, nil
	case DatabasePostgres.String(), "postgresql", "pgx":
		return DatabasePostgres, nil
	case DatabaseNone.String(), "":
		return DatabaseNone, nil
	default:
		return DatabaseNone, fmt.Errorf("DB type not one of 'sqlite' or 'postgres': %q", s)
	}
}

const (
	MaxSecretSize = 64
	MinSecretSize = 32
)

// Format is a config file format.
type Format int

const (
	NoFormat Format = iota
	JSON
	YAML
	TOML
)

func (f Format) String() string {
	switch f {
	case NoFormat:
		return "none"
	case JSON:
		return "JSON"
	case YAML:
		return "YAML"
	case TOML:
		return "TOML"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extensions returns the file extensions, without the leading dot, that
// indicate a file is in the format.
func (f Format) Extensions() []string {
	switch f {
	case JSON:
		return []string{"json", "jsn"}
	case YAML:
		return []string{"yaml", "yml"}
	case TOML:
		return []string{"toml", "tml"}
	default:
		return nil
	}
}

// Globals are the settings of the HTTP server itself.
type Globals struct {
	// Port is the port to listen on.
	Port int

	// Address is the address to bind to.
	Address string

	// URIBase is the path that all API routes are mounted under.
	URIBase string
}

// FillDefaults returns a copy of g with unset values set to their defaults.
func (g Globals) FillDefaults() Globals {
	newG := g

	if newG.Port == 0 {
		newG.Port = 8080
	}
	if newG.Address == "" {
		newG.Address = "localhost"
	}
	if newG.URIBase == "" {
		newG.URIBase = "/api/v1"
	}

	return newG
}

// Validate returns an error if the Globals have invalid field values set.
func (g Globals) Validate() error {
	if g.Port < 1 || g.Port > 65535 {
		return fmt.Errorf("listen: port must be between 1 and 65535 but is %d", g.Port)
	}
	if !strings.HasPrefix(g.URIBase, "/") {
		return fmt.Errorf("base: must start with '/'")
	}
	return nil
}

// LogConfig contains logging options.
type LogConfig struct {
	// Enabled is whether to log at all.
	Enabled bool

	// Provider is the library that backs the log.
	Provider LogProvider

	// File is the path of a file to log to in addition to stderr. If blank,
	// only stderr is used.
	File string

	// MaxSizeMB is the size a log file may grow to before it is rotated. Only
	// used by providers that support rotation.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// MaxAgeDays is the number of days to keep rotated files.
	MaxAgeDays int
}

// FillDefaults returns a copy of lc with unset values set to their defaults.
func (lc LogConfig) FillDefaults() LogConfig {
	newLC := lc

	if newLC.Provider == NoLog {
		newLC.Provider = Jellog
	}
	if newLC.MaxSizeMB == 0 {
		newLC.MaxSizeMB = 100
	}
	if newLC.MaxBackups == 0 {
		newLC.MaxBackups = 3
	}
	if newLC.MaxAgeDays == 0 {
		newLC.MaxAgeDays = 28
	}

	return newLC
}

// DatabaseConfig contains configuration settings for connecting to a
// persistence layer.
type DatabaseConfig struct {
	// Type is the type of database the config refers to. It also determines
	// which of its other fields are valid.
	Type DBType

	// Connector is the name of a registered connector to use instead of the
	// default one for Type.
	Connector string

	// DataDir is the path on disk to a directory to store data in. Only
	// applicable for SQLite.
	DataDir string

	// DataFile is the name of the DB file within DataDir. Only applicable for
	// SQLite.
	DataFile string

	// DSN is the connection string. Only applicable for PostgreSQL.
	DSN string

	// MaxOpenConns is the maximum number of pooled connections. 0 means the
	// engine default.
	MaxOpenConns int
}

// FillDefaults returns a copy of db with unset values set to their defaults.
func (db DatabaseConfig) FillDefaults() DatabaseConfig {
	newDB := db

	if newDB.Type == DatabaseNone || newDB.Type == "" {
		newDB.Type = DatabaseSQLite
	}
	if newDB.Type == DatabaseSQLite {
		if newDB.DataDir == "" {
			newDB.DataDir = "data"
		}
		if newDB.DataFile == "" {
			newDB.DataFile = "potluck.db"
		}
	}

	return newDB
}

// Validate returns an error if the DatabaseConfig does not have the correct
// fields set for its type.
func (db DatabaseConfig) Validate() error {
	switch db.Type {
	case DatabaseSQLite:
		if db.DataDir == "" {
			return fmt.Errorf("dir: not set to path")
		}
		if db.DataFile == "" {
			return fmt.Errorf("file: not set")
		}
	case DatabasePostgres:
		if db.DSN == "" {
			return fmt.Errorf("dsn: not set")
		}
	case DatabaseNone:
		return fmt.Errorf("'none' DB is not valid")
	default:
		return fmt.Errorf("unknown database type: %q", db.Type.String())
	}

	if db.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns: must not be negative")
	}
	return nil
}

// AuthConfig contains settings for API keys, user login, and tokens.
type AuthConfig struct {
	// Secret is the secret used for signing tokens. If not provided, a
	// default key is used.
	Secret []byte

	// SetAdmin sets the initial admin user in the DB. If it doesn't exist,
	// it's created on startup. Format must be USERNAME:PASSWORD. If blank, no
	// user is created.
	SetAdmin string

	// UnauthDelayMillis is the amount of additional time to wait
	// (in milliseconds) before sending a response that indicates either that
	// the client was unauthorized or the client was unauthenticated. This is
	// something of an "anti-flood" measure for naive clients attempting
	// non-parallel connections. If not set it will default to 1 second
	// (1000ms). Set this to any negative number to disable the delay.
	UnauthDelayMillis int

	// AllowRegistration is whether anonymous clients may create users.
	AllowRegistration bool

	// TokenLifetime is how long issued tokens are valid for.
	TokenLifetime time.Duration

	// LoginRate is the number of login attempts per second allowed across all
	// clients. Negative disables the limit.
	LoginRate float64

	// LoginBurst is the number of login attempts allowed at once.
	LoginBurst int
}

// UnauthDelay returns the configured time for the UnauthDelay as a
// time.Duration. If UnauthDelayMillis is set to a number less than 0, this will
// return a zero-valued time.Duration.
func (ac AuthConfig) UnauthDelay() time.Duration {
	if ac.UnauthDelayMillis < 1 {
		var dur time.Duration
		return dur
	}
	return time.Millisecond * time.Duration(ac.UnauthDelayMillis)
}

// FillDefaults returns a copy of ac with unset values set to their defaults.
func (ac AuthConfig) FillDefaults() AuthConfig {
	newAC := ac

	if newAC.Secret == nil {
		newAC.Secret = []byte("DEFAULT_NONPROD_TOKEN_SECRET_DO_NOT_USE")
	}
	if newAC.UnauthDelayMillis == 0 {
		newAC.UnauthDelayMillis = 1000
	}
	if newAC.TokenLifetime == 0 {
		newAC.TokenLifetime = 7 * 24 * time.Hour
	}
	if newAC.LoginRate == 0 {
		newAC.LoginRate = 5
	}
	if newAC.LoginBurst == 0 {
		newAC.LoginBurst = 10
	}

	return newAC
}

// Validate returns an error if the AuthConfig has invalid field values set.
func (ac AuthConfig) Validate() error {
	if len(ac.Secret) < MinSecretSize {
		return fmt.Errorf("secret: must be at least %d bytes, but is %d", MinSecretSize, len(ac.Secret))
	}
	if len(ac.Secret) > MaxSecretSize {
		return fmt.Errorf("secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(ac.Secret))
	}
	if ac.SetAdmin != "" {
		if _, _, err := ParseSetAdmin(ac.SetAdmin); err != nil {
			return err
		}
	}
	if ac.TokenLifetime < 0 {
		return fmt.Errorf("token_lifetime: must not be negative")
	}
	if ac.LoginRate > 0 && ac.LoginBurst < 1 {
		return fmt.Errorf("login_burst: must be at least 1 when login_rate is set")
	}

	// all possible values for UnauthDelayMillis are valid, so no need to check it

	return nil
}

// ParseSetAdmin splits a USERNAME:PASSWORD string.
func ParseSetAdmin(s string) (user, pass string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("set_admin: not in USERNAME:PASSWORD format")
	}
	if len(parts[0]) < 1 {
		return "", "", fmt.Errorf("set_admin: username cannot be blank")
	}
	if len(parts[1]) < 1 {
		return "", "", fmt.Errorf("set_admin: password cannot be blank")
	}

	return parts[0], parts[1], nil
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Config is a configuration for a server. It contains all parameters that can
// be used to configure the operation of a server.
type Config struct {
	Globals Globals
	Log     LogConfig
	DB      DatabaseConfig
	Auth    AuthConfig
	Metrics MetricsConfig

	// Format is the format the config was loaded from. It is used when the
	// config is dumped.
	Format Format
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	newCFG.Globals = newCFG.Globals.FillDefaults()
	newCFG.Log = newCFG.Log.FillDefaults()
	newCFG.DB = newCFG.DB.FillDefaults()
	newCFG.Auth = newCFG.Auth.FillDefaults()
	if newCFG.Metrics.Path == "" {
		newCFG.Metrics.Path = "/metrics"
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if err := cfg.Globals.Validate(); err != nil {
		return err
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path: must start with '/'")
	}

	return nil
}
