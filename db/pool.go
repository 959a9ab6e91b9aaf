package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Querier is anything statements can be run on. *sql.DB, *sql.Conn, *sql.Tx,
// and *Lease all qualify.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// TxBeginner is a Querier that can start a transaction.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Pool is the process-wide set of connections to the database. Create one with
// NewPool once at startup and Close it at shutdown.
type Pool struct {
	db      *sql.DB
	dialect Dialect
}

// NewPool wraps an open database handle. maxOpen limits the number of open
// connections; 0 leaves the driver default.
func NewPool(db *sql.DB, dialect Dialect, maxOpen int) *Pool {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	return &Pool{db: db, dialect: dialect}
}

// Dialect returns the SQL dialect of the pool's engine.
func (p *Pool) Dialect() Dialect {
	return p.dialect
}

// DB returns the underlying handle.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Acquire checks out a connection for the caller's exclusive use. The Lease
// must be released once the caller is done with it.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", p.dialect.WrapError(err))
	}
	return &Lease{Conn: conn}, nil
}

// Close closes every connection in the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Lease is a pooled connection checked out by Pool.Acquire.
type Lease struct {
	*sql.Conn

	once sync.Once
}

// Release returns the connection to the pool. Calling it more than once has no
// further effect.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.Conn.Close()
	})
}
