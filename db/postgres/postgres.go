// Package postgres provides the PostgreSQL engine for potluck. It uses the pgx
// driver through its database/sql adapter so that the same data access code
// runs on both engines.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/potluck"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DriverName is the database/sql driver name that the pgx adapter registers.
const DriverName = "pgx"

// integrityClass is the SQLSTATE class of integrity constraint violations.
const integrityClass = "23"

// WrapDBError wraps an error from PostgreSQL into an error useable by the
// rest of potluck. It should be called on any error returned from the driver
// before a repo passes the error back to a caller.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, integrityClass) {
			return fmt.Errorf("%w: %s", potluck.DBErrConstraintViolation, pgErr.Message)
		}
		return fmt.Errorf("SQLSTATE %s: %s", pgErr.Code, pgErr.Message)
	} else if errors.Is(err, sql.ErrNoRows) {
		return potluck.DBErrNotFound
	}
	return err
}

// Dialect is the SQL dialect of PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string {
	return "postgres"
}

func (Dialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Dialect) InsertReturnsID() bool {
	return true
}

func (Dialect) WrapError(err error) error {
	return WrapDBError(err)
}

// Open connects to the database at dsn and makes sure every table exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, WrapDBError(err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: %w", WrapDBError(err))
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Schema is the DDL for every table. It matches the SQLite schema column for
// column so that the same statements work on both engines.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id BIGSERIAL PRIMARY KEY,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		name TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS menus (
		id BIGSERIAL PRIMARY KEY,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		date TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS menus_date ON menus (date);`,
	`CREATE TABLE IF NOT EXISTS category_recipe (
		recipe_id BIGINT NOT NULL REFERENCES recipes (id),
		category_id BIGINT NOT NULL REFERENCES categories (id),
		PRIMARY KEY (recipe_id, category_id)
	);`,
	`CREATE INDEX IF NOT EXISTS category_recipe_category ON category_recipe (category_id);`,
	`CREATE TABLE IF NOT EXISTS menu_recipe (
		menu_id BIGINT NOT NULL REFERENCES menus (id),
		recipe_id BIGINT NOT NULL REFERENCES recipes (id),
		PRIMARY KEY (menu_id, recipe_id)
	);`,
	`CREATE INDEX IF NOT EXISTS menu_recipe_recipe ON menu_recipe (recipe_id);`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		admin INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS apikeys (
		id BIGSERIAL PRIMARY KEY,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		apikey TEXT NOT NULL UNIQUE,
		revoked INTEGER NOT NULL DEFAULT 0
	);`,
}

// Migrate creates any table in Schema that does not yet exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", WrapDBError(err))
		}
	}
	return nil
}
