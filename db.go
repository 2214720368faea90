// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrTXDone is returned when a transaction is committed or rolled back twice.
var ErrTXDone = sql.ErrTxDone

// Executor runs rendered SQL text. It is satisfied by *sql.DB, *sql.Tx and
// *sql.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Tx)(nil)
	_ Executor = (*sql.Conn)(nil)
)

// beginner is implemented by executors that can start transactions.
type beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DB renders statements with a Builder and runs them on an Executor. A
// statement that failed to render is never sent to the executor; its error
// is returned instead.
type DB struct {
	b      *Builder
	exec   Executor
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger that receives every executed statement at
// debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// NewDB returns a DB running statements rendered by b on exec. A nil builder
// renders under the generic dialect.
func NewDB(exec Executor, b *Builder, opts ...Option) *DB {
	if exec == nil {
		return nil
	}
	if b == nil {
		b = genericBuilder
	}
	db := &DB{
		b:      b,
		exec:   exec,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Builder returns the builder used to render statements.
func (db *DB) Builder() *Builder {
	return db.b
}

// PlainExecutor returns the underlying executor.
func (db *DB) PlainExecutor() Executor {
	return db.exec
}

// Exec runs a statement that returns no rows.
func (db *DB) Exec(ctx context.Context, stmt Expr) (sql.Result, error) {
	return db.execute(ctx, "execute statement", stmt)
}

// Query runs a statement that returns rows. The caller must close them.
func (db *DB) Query(ctx context.Context, stmt Expr) (*sql.Rows, error) {
	return db.query(ctx, "query", stmt)
}

// CreateTable renders and runs CREATE TABLE.
func (db *DB) CreateTable(ctx context.Context, table any, columns any) (sql.Result, error) {
	return db.execute(ctx, "create table", db.b.CreateTable(table, columns))
}

// DropTable renders and runs DROP TABLE.
func (db *DB) DropTable(ctx context.Context, table any) (sql.Result, error) {
	return db.execute(ctx, "drop table", db.b.DropTable(table))
}

// Truncate renders and runs TRUNCATE.
func (db *DB) Truncate(ctx context.Context, table any) (sql.Result, error) {
	return db.execute(ctx, "truncate", db.b.Truncate(table))
}

// Select renders and runs SELECT. The caller must close the returned rows.
func (db *DB) Select(ctx context.Context, fields []any, opts *SelectOptions) (*sql.Rows, error) {
	return db.query(ctx, "select", db.b.Select(fields, opts))
}

// InsertInto renders and runs INSERT INTO.
func (db *DB) InsertInto(ctx context.Context, table any, rows ...any) (sql.Result, error) {
	return db.execute(ctx, "insert", db.b.InsertInto(table, rows...))
}

// Update renders and runs UPDATE.
func (db *DB) Update(ctx context.Context, table any, opts *UpdateOptions) (sql.Result, error) {
	return db.execute(ctx, "update", db.b.Update(table, opts))
}

// DeleteFrom renders and runs DELETE.
func (db *DB) DeleteFrom(ctx context.Context, table any, opts *DeleteOptions) (sql.Result, error) {
	return db.execute(ctx, "delete", db.b.DeleteFrom(table, opts))
}

func (db *DB) execute(ctx context.Context, op string, stmt Expr) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query, err := stmt.SQL()
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	db.logger.DebugContext(ctx, "executing statement", slog.String("sql", query))
	result, err := db.exec.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	return result, nil
}

func (db *DB) query(ctx context.Context, op string, stmt Expr) (*sql.Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query, err := stmt.SQL()
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	db.logger.DebugContext(ctx, "running query", slog.String("sql", query))
	rows, err := db.exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	return rows, nil
}

// TX is a DB running statements inside a transaction. A transaction must be
// ended with a [TX.Commit] or [TX.Rollback].
type TX struct {
	*DB
	sqltx *sql.Tx
	done  int32
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. The executor must be able to begin
// transactions, as *sql.DB and *sql.Conn are.
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	bx, ok := db.exec.(beginner)
	if !ok {
		return nil, fmt.Errorf("cannot begin transaction: %T cannot start transactions", db.exec)
	}
	sqltx, err := bx.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction: %w", err)
	}
	inner := &DB{b: db.b, exec: sqltx, logger: db.logger}
	return &TX{DB: inner, sqltx: sqltx}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}
