package potluck

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Config_FillDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{}.FillDefaults()

	assert.Equal("localhost", cfg.Globals.Address)
	assert.Equal(8080, cfg.Globals.Port)
	assert.Equal("/api/v1", cfg.Globals.URIBase)
	assert.Equal(DatabaseSQLite, cfg.DB.Type)
	assert.Equal("data", cfg.DB.DataDir)
	assert.Equal("potluck.db", cfg.DB.DataFile)
	assert.Equal(Jellog, cfg.Log.Provider)
	assert.Equal(7*24*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(time.Second, cfg.Auth.UnauthDelay())
	assert.Equal("/metrics", cfg.Metrics.Path)
	assert.NoError(cfg.Validate())
}

func Test_Config_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:      "port too high",
			modify:    func(c *Config) { c.Globals.Port = 70000 },
			expectErr: true,
		},
		{
			name:      "base without slash",
			modify:    func(c *Config) { c.Globals.URIBase = "api" },
			expectErr: true,
		},
		{
			name:      "secret too short",
			modify:    func(c *Config) { c.Auth.Secret = []byte("short") },
			expectErr: true,
		},
		{
			name:      "secret too long",
			modify:    func(c *Config) { c.Auth.Secret = []byte(strings.Repeat("a", MaxSecretSize+1)) },
			expectErr: true,
		},
		{
			name:      "postgres without DSN",
			modify:    func(c *Config) { c.DB = DatabaseConfig{Type: DatabasePostgres} },
			expectErr: true,
		},
		{
			name: "postgres with DSN",
			modify: func(c *Config) {
				c.DB = DatabaseConfig{Type: DatabasePostgres, DSN: "postgres://localhost/potluck"}
			},
		},
		{
			name:      "set_admin without password",
			modify:    func(c *Config) { c.Auth.SetAdmin = "admin:" },
			expectErr: true,
		},
		{
			name:   "set_admin with password",
			modify: func(c *Config) { c.Auth.SetAdmin = "admin:changeme" },
		},
		{
			name:      "negative max open conns",
			modify:    func(c *Config) { c.DB.MaxOpenConns = -1 },
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg := Config{}.FillDefaults()
			tc.modify(&cfg)

			err := cfg.Validate()

			if tc.expectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func Test_ParseSetAdmin(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		expectUser string
		expectPass string
		expectErr  bool
	}{
		{name: "normal", input: "admin:changeme", expectUser: "admin", expectPass: "changeme"},
		{name: "colon in password", input: "admin:a:b", expectUser: "admin", expectPass: "a:b"},
		{name: "no colon", input: "admin", expectErr: true},
		{name: "blank user", input: ":pass", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			user, pass, err := ParseSetAdmin(tc.input)

			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expectUser, user)
			assert.Equal(tc.expectPass, pass)
		})
	}
}

func Test_ParseDBType(t *testing.T) {
	assert := assert.New(t)

	actual, err := ParseDBType("PostgreSQL")
	assert.NoError(err)
	assert.Equal(DatabasePostgres, actual)

	actual, err = ParseDBType("sqlite3")
	assert.NoError(err)
	assert.Equal(DatabaseSQLite, actual)

	_, err = ParseDBType("mongo")
	assert.Error(err)
}

func Test_DatabaseConfig_FillDefaults(t *testing.T) {
	testCases := []struct {
		name   string
		input  DatabaseConfig
		expect DatabaseConfig
	}{
		{
			name:   "zero value becomes sqlite",
			input:  DatabaseConfig{},
			expect: DatabaseConfig{Type: DatabaseSQLite, DataDir: "data", DataFile: "potluck.db"},
		},
		{
			name:   "none becomes sqlite",
			input:  DatabaseConfig{Type: DatabaseNone},
			expect: DatabaseConfig{Type: DatabaseSQLite, DataDir: "data", DataFile: "potluck.db"},
		},
		{
			name:   "sqlite keeps set paths",
			input:  DatabaseConfig{Type: DatabaseSQLite, DataDir: "/var/potluck"},
			expect: DatabaseConfig{Type: DatabaseSQLite, DataDir: "/var/potluck", DataFile: "potluck.db"},
		},
		{
			name:   "postgres is left alone",
			input:  DatabaseConfig{Type: DatabasePostgres, DSN: "postgres://localhost/potluck"},
			expect: DatabaseConfig{Type: DatabasePostgres, DSN: "postgres://localhost/potluck"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.input.FillDefaults()

			assert.Equal(tc.expect, actual)
			assert.NoError(actual.Validate())
		})
	}
}
