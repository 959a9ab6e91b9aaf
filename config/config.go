// Package config loads potluck server configuration from disk and connects to
// the database it names.
//
// Configuration files are YAML, JSON, or TOML; the format is chosen by the
// file extension. Every format has the same layout:
//
//	listen: localhost:8080
//	base: /api/v1
//	logging:
//	  enabled: true
//	  provider: jellog
//	  file: potluck.log
//	db:
//	  type: sqlite
//	  dir: data
//	  file: potluck.db
//	auth:
//	  secret: 32-to-64-bytes-of-secret-for-signing-tokens
//	  set_admin: admin:password
//	  unauth_delay: 1000
//	  allow_registration: false
//	  token_lifetime: 168h
//	metrics:
//	  enabled: true
//	  path: /metrics
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type marshaledDatabase struct {
	Type         string `yaml:"type" json:"type" toml:"type"`
	Connector    string `yaml:"connector,omitempty" json:"connector,omitempty" toml:"connector,omitempty"`
	Dir          string `yaml:"dir,omitempty" json:"dir,omitempty" toml:"dir,omitempty"`
	File         string `yaml:"file,omitempty" json:"file,omitempty" toml:"file,omitempty"`
	DSN          string `yaml:"dsn,omitempty" json:"dsn,omitempty" toml:"dsn,omitempty"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty" toml:"max_open_conns,omitempty"`
}

type marshaledLog struct {
	Enabled    bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Provider   string `yaml:"provider" json:"provider" toml:"provider"`
	File       string `yaml:"file,omitempty" json:"file,omitempty" toml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty" toml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty" toml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty" toml:"max_age_days,omitempty"`
}

type marshaledAuth struct {
	Secret            string  `yaml:"secret,omitempty" json:"secret,omitempty" toml:"secret,omitempty"`
	SetAdmin          string  `yaml:"set_admin,omitempty" json:"set_admin,omitempty" toml:"set_admin,omitempty"`
	UnauthDelay       int     `yaml:"unauth_delay,omitempty" json:"unauth_delay,omitempty" toml:"unauth_delay,omitempty"`
	AllowRegistration bool    `yaml:"allow_registration" json:"allow_registration" toml:"allow_registration"`
	TokenLifetime     string  `yaml:"token_lifetime,omitempty" json:"token_lifetime,omitempty" toml:"token_lifetime,omitempty"`
	LoginRate         float64 `yaml:"login_rate,omitempty" json:"login_rate,omitempty" toml:"login_rate,omitempty"`
	LoginBurst        int     `yaml:"login_burst,omitempty" json:"login_burst,omitempty" toml:"login_burst,omitempty"`
}

type marshaledMetrics struct {
	Enabled bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty" toml:"path,omitempty"`
}

type marshaledConfig struct {
	Listen  string            `yaml:"listen,omitempty" json:"listen,omitempty" toml:"listen,omitempty"`
	Base    string            `yaml:"base,omitempty" json:"base,omitempty" toml:"base,omitempty"`
	Logging marshaledLog      `yaml:"logging" json:"logging" toml:"logging"`
	DB      marshaledDatabase `yaml:"db" json:"db" toml:"db"`
	Auth    marshaledAuth     `yaml:"auth" json:"auth" toml:"auth"`
	Metrics marshaledMetrics  `yaml:"metrics" json:"metrics" toml:"metrics"`
}

func decode(f potluck.Format, data []byte) (potluck.Config, error) {
	var cfg potluck.Config
	var mc marshaledConfig
	var err error

	switch f {
	case potluck.JSON:
		err = json.Unmarshal(data, &mc)
	case potluck.YAML:
		err = yaml.Unmarshal(data, &mc)
	case potluck.TOML:
		err = toml.Unmarshal(data, &mc)
	default:
		return cfg, fmt.Errorf("cannot unmarshal data in format %q", f.String())
	}

	if err != nil {
		return cfg, err
	}

	cfg.Format = f
	err = unmarshalConfig(&cfg, mc)
	return cfg, err
}

func encode(f potluck.Format, c potluck.Config) ([]byte, error) {
	mc := marshalConfig(c)
	var err error
	var data []byte

	switch f {
	case potluck.JSON:
		data, err = json.MarshalIndent(mc, "", "  ")
	case potluck.YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		err = enc.Encode(mc)
		data = buf.Bytes()
	case potluck.TOML:
		data, err = toml.Marshal(mc)
	default:
		return nil, fmt.Errorf("cannot marshal data in format %q", f.String())
	}

	return data, err
}

// SupportedFormats returns a list of formats that the config module supports
// decoding. Includes all but NoFormat.
func SupportedFormats() []potluck.Format {
	return []potluck.Format{potluck.JSON, potluck.YAML, potluck.TOML}
}

// DetectFormat detects the format of a given configuration file and returns
// the potluck.Format that can decode it. Returns potluck.NoFormat if the
// format could not be detected.
func DetectFormat(file string) potluck.Format {
	ext := strings.ToLower(filepath.Ext(file))
	ext = strings.TrimPrefix(ext, ".")

	for _, f := range SupportedFormats() {
		for _, checkedExt := range f.Extensions() {
			if ext == strings.ToLower(checkedExt) {
				return f
			}
		}
	}

	return potluck.NoFormat
}

// Dump returns the config in the format it was loaded from, or YAML if it was
// not loaded from a file.
func Dump(cfg potluck.Config) []byte {
	f := cfg.Format
	if f == potluck.NoFormat {
		f = potluck.YAML
	}
	b, err := encode(f, cfg)
	if err != nil {
		panic(fmt.Sprintf("format encoding failed: %v", err))
	}
	return b
}

// Load loads a configuration from a JSON, YAML, or TOML file. The format of
// the file is determined by examining its extension; see DetectFormat. The
// extension is not case-sensitive.
//
// The returned Config is exactly what the file gives. Call FillDefaults and
// Validate on it before use.
func Load(file string) (potluck.Config, error) {
	f := DetectFormat(file)
	if f == potluck.NoFormat {
		var exts []string
		for _, f := range SupportedFormats() {
			for _, ext := range f.Extensions() {
				exts = append(exts, "."+ext)
			}
		}

		return potluck.Config{}, fmt.Errorf("%s: incompatible format; must be one of %s", file, strings.Join(exts, ", "))
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return potluck.Config{}, fmt.Errorf("%s: %w", file, err)
	}

	cfg, err := decode(f, data)
	if err != nil {
		return potluck.Config{}, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// does no validation except that which is required for parsing.
func unmarshalConfig(cfg *potluck.Config, m marshaledConfig) error {
	var err error

	if m.Listen != "" {
		bindParts := strings.SplitN(m.Listen, ":", 2)
		if len(bindParts) != 2 {
			return fmt.Errorf("listen: not in \"ADDRESS:PORT\" or \":PORT\" format")
		}
		cfg.Globals.Address = bindParts[0]
		cfg.Globals.Port, err = strconv.Atoi(bindParts[1])
		if err != nil {
			return fmt.Errorf("listen: %q is not a valid port number", bindParts[1])
		}
	}
	cfg.Globals.URIBase = m.Base

	cfg.Log.Enabled = m.Logging.Enabled
	cfg.Log.Provider, err = potluck.ParseLogProvider(m.Logging.Provider)
	if err != nil {
		return fmt.Errorf("logging: provider: %w", err)
	}
	cfg.Log.File = m.Logging.File
	cfg.Log.MaxSizeMB = m.Logging.MaxSizeMB
	cfg.Log.MaxBackups = m.Logging.MaxBackups
	cfg.Log.MaxAgeDays = m.Logging.MaxAgeDays

	cfg.DB.Type, err = potluck.ParseDBType(m.DB.Type)
	if err != nil {
		return fmt.Errorf("db: type: %w", err)
	}
	cfg.DB.Connector = m.DB.Connector
	cfg.DB.DataDir = m.DB.Dir
	cfg.DB.DataFile = m.DB.File
	cfg.DB.DSN = m.DB.DSN
	cfg.DB.MaxOpenConns = m.DB.MaxOpenConns

	if m.Auth.Secret != "" {
		cfg.Auth.Secret = []byte(m.Auth.Secret)
	}
	cfg.Auth.SetAdmin = m.Auth.SetAdmin
	cfg.Auth.UnauthDelayMillis = m.Auth.UnauthDelay
	cfg.Auth.AllowRegistration = m.Auth.AllowRegistration
	if m.Auth.TokenLifetime != "" {
		cfg.Auth.TokenLifetime, err = time.ParseDuration(m.Auth.TokenLifetime)
		if err != nil {
			return fmt.Errorf("auth: token_lifetime: %w", err)
		}
	}
	cfg.Auth.LoginRate = m.Auth.LoginRate
	cfg.Auth.LoginBurst = m.Auth.LoginBurst

	cfg.Metrics.Enabled = m.Metrics.Enabled
	cfg.Metrics.Path = m.Metrics.Path

	return nil
}

// marshalConfig converts a config to the marshaledConfig that would recreate
// it if passed to unmarshalConfig.
func marshalConfig(cfg potluck.Config) marshaledConfig {
	mc := marshaledConfig{
		Base: cfg.Globals.URIBase,
		Logging: marshaledLog{
			Enabled:    cfg.Log.Enabled,
			Provider:   cfg.Log.Provider.String(),
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
		DB: marshaledDatabase{
			Type:         cfg.DB.Type.String(),
			Connector:    cfg.DB.Connector,
			Dir:          cfg.DB.DataDir,
			File:         cfg.DB.DataFile,
			DSN:          cfg.DB.DSN,
			MaxOpenConns: cfg.DB.MaxOpenConns,
		},
		Auth: marshaledAuth{
			Secret:            string(cfg.Auth.Secret),
			SetAdmin:          cfg.Auth.SetAdmin,
			UnauthDelay:       cfg.Auth.UnauthDelayMillis,
			AllowRegistration: cfg.Auth.AllowRegistration,
			LoginRate:         cfg.Auth.LoginRate,
			LoginBurst:        cfg.Auth.LoginBurst,
		},
		Metrics: marshaledMetrics{
			Enabled: cfg.Metrics.Enabled,
			Path:    cfg.Metrics.Path,
		},
	}

	if cfg.Globals.Address != "" || cfg.Globals.Port != 0 {
		mc.Listen = fmt.Sprintf("%s:%d", cfg.Globals.Address, cfg.Globals.Port)
	}
	if cfg.Auth.TokenLifetime != 0 {
		mc.Auth.TokenLifetime = cfg.Auth.TokenLifetime.String()
	}

	return mc
}
