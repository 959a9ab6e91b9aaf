// Package sqlite provides the SQLite engine for potluck, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dekarrin/potluck"
	"modernc.org/sqlite"
)

// DriverName is the database/sql driver name that modernc.org/sqlite
// registers.
const DriverName = "sqlite"

// WrapDBError wraps an error from the SQLite engine into an error useable by
// the rest of potluck. It should be called on any error returned from SQLite
// before a repo passes the error back to a caller.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}

	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		primaryCode := sqliteErr.Code() & 0xff
		if primaryCode == 19 {
			return fmt.Errorf("%w: %s", potluck.DBErrConstraintViolation, err.Error())
		}
		if primaryCode == 1 {
			// this is a generic error and thus the string is not descriptive,
			// so preserve the original error instead
			return err
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return potluck.DBErrNotFound
	}
	return err
}

// Dialect is the SQL dialect of SQLite.
type Dialect struct{}

func (Dialect) Name() string {
	return "sqlite"
}

func (Dialect) Placeholder(n int) string {
	return "?"
}

func (Dialect) InsertReturnsID() bool {
	return false
}

func (Dialect) WrapError(err error) error {
	return WrapDBError(err)
}

// Open opens the database file called file in dir, creating dir if needed, and
// makes sure every table exists.
func Open(ctx context.Context, dir, file string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dir, file) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, WrapDBError(err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Schema is the DDL for every table. Booleans are INTEGER 0 or 1, timestamps
// are INTEGER Unix seconds, and dates are TEXT in YYYY-MM-DD form.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		name TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS menus (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		date TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS menus_date ON menus (date);`,
	`CREATE TABLE IF NOT EXISTS category_recipe (
		recipe_id INTEGER NOT NULL REFERENCES recipes (id),
		category_id INTEGER NOT NULL REFERENCES categories (id),
		PRIMARY KEY (recipe_id, category_id)
	);`,
	`CREATE INDEX IF NOT EXISTS category_recipe_category ON category_recipe (category_id);`,
	`CREATE TABLE IF NOT EXISTS menu_recipe (
		menu_id INTEGER NOT NULL REFERENCES menus (id),
		recipe_id INTEGER NOT NULL REFERENCES recipes (id),
		PRIMARY KEY (menu_id, recipe_id)
	);`,
	`CREATE INDEX IF NOT EXISTS menu_recipe_recipe ON menu_recipe (recipe_id);`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		admin INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS apikeys (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
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
