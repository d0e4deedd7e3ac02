// Package db connects to the engines under test and turns driver output into
// result.Result values.
package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"derivefuzz/internal/config"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/result"
	"derivefuzz/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/ratelimit"
)

// Conn is what the oracle loop needs from a target connection.
//
// Execute never returns an error for ordinary SQL failures; those are
// captured in the returned result. A non-nil error means the session itself
// failed (transport failure or cancellation).
type Conn interface {
	Execute(ctx context.Context, sql string) (result.Result, error)
	// Close drops the isolated database or schema and releases the session.
	// It is idempotent and only logs its own failures.
	Close() error
	Target() dialect.Target
	Database() string
}

// Opener opens a fresh connection bound to a newly created database or
// schema with the given name.
type Opener func(ctx context.Context, name string) (Conn, error)

// Options configures connections to one target.
type Options struct {
	Target           dialect.Target
	Endpoint         config.TargetConfig
	StatementTimeout time.Duration
	// Limiter throttles statements across every connection sharing it.
	Limiter ratelimit.Limiter
}

// NewOpener returns an Opener for opts.
func NewOpener(opts Options) Opener {
	return func(ctx context.Context, name string) (Conn, error) {
		return Open(ctx, opts, name)
	}
}

const closeTimeout = 10 * time.Second

// DB is a Conn pinned to a single database/sql session.
type DB struct {
	target    dialect.Target
	name      string
	pool      *sql.DB
	conn      *sql.Conn
	admin     *sql.DB
	blacklist []string
	timeout   time.Duration
	limiter   ratelimit.Limiter
	closeOnce sync.Once
}

// Open creates the isolated database or schema called name and returns a
// session bound to it.
func Open(ctx context.Context, opts Options, name string) (*DB, error) {
	d := &DB{
		target:    opts.Target,
		name:      name,
		blacklist: opts.Endpoint.ResBlacklist,
		timeout:   opts.StatementTimeout,
		limiter:   opts.Limiter,
	}
	var err error
	switch opts.Target.Isolation() {
	case dialect.IsolateDatabase:
		err = d.openDatabaseIsolated(ctx, opts)
	default:
		err = d.openSchemaIsolated(ctx, opts)
	}
	if err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

func (d *DB) openDatabaseIsolated(ctx context.Context, opts Options) error {
	admin, err := openPool(opts.Target, opts.Endpoint, opts.Endpoint.Database)
	if err != nil {
		return err
	}
	d.admin = admin
	if err := EnsureIsolation(ctx, admin, opts.Target, d.name); err != nil {
		return err
	}
	pool, err := openPool(opts.Target, opts.Endpoint, d.name)
	if err != nil {
		return err
	}
	d.pool = pool
	conn, err := pool.Conn(ctx)
	if err != nil {
		return errors.Wrapf(err, "connect %s database %s", opts.Target, d.name)
	}
	d.conn = conn
	return nil
}

func (d *DB) openSchemaIsolated(ctx context.Context, opts Options) error {
	pool, err := openPool(opts.Target, opts.Endpoint, defaultDatabase(opts.Target, opts.Endpoint))
	if err != nil {
		return err
	}
	d.pool = pool
	conn, err := pool.Conn(ctx)
	if err != nil {
		return errors.Wrapf(err, "connect %s", opts.Target)
	}
	d.conn = conn
	if err := EnsureIsolation(ctx, conn, opts.Target, d.name); err != nil {
		return err
	}
	if use := opts.Target.UseSchemaSQL(d.name); use != "" {
		if _, err := conn.ExecContext(ctx, use); err != nil {
			return errors.Wrapf(err, "switch to schema %s", d.name)
		}
	}
	return nil
}

// Target reports the engine behind the connection.
func (d *DB) Target() dialect.Target { return d.target }

// Database reports the isolated database or schema name.
func (d *DB) Database() string { return d.name }

// Execute runs one statement and captures its outcome.
func (d *DB) Execute(ctx context.Context, sqlText string) (result.Result, error) {
	if d.limiter != nil {
		d.limiter.Take()
	}
	stmtCtx, cancel := d.statementContext(ctx)
	defer cancel()
	if ReturnsRows(sqlText) {
		return d.query(ctx, stmtCtx, sqlText)
	}
	res, err := d.conn.ExecContext(stmtCtx, sqlText)
	if err != nil {
		return d.fail(ctx, sqlText, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	return result.NewUpdate(sqlText, n), nil
}

func (d *DB) query(parent, stmtCtx context.Context, sqlText string) (result.Result, error) {
	rows, err := d.conn.QueryContext(stmtCtx, sqlText)
	if err != nil {
		return d.fail(parent, sqlText, err)
	}
	defer util.CloseWithErr(rows, "rows")
	cols, err := rows.ColumnTypes()
	if err != nil {
		return d.fail(parent, sqlText, err)
	}
	var cells [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return d.fail(parent, sqlText, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = result.NormalizeValue(v, cols[i].DatabaseTypeName())
		}
		cells = append(cells, row)
	}
	if err := rows.Err(); err != nil {
		return d.fail(parent, sqlText, err)
	}
	return result.NewRows(sqlText, cells), nil
}

func (d *DB) fail(parent context.Context, sqlText string, err error) (result.Result, error) {
	if IsTransportError(parent, err) {
		return result.Result{SQL: sqlText}, errors.Wrapf(err, "%s transport failure", d.target)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return result.NewTimeout(sqlText), nil
	}
	code, msg := SplitError(err)
	return result.NewError(sqlText, code, msg, d.blacklist), nil
}

func (d *DB) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// Close drops the isolated database or schema and closes the session.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		drop := d.target.DropIsolationSQL(d.name)
		if d.target.Isolation() == dialect.IsolateSchema {
			if d.conn != nil {
				if _, err := d.conn.ExecContext(ctx, drop); err != nil {
					util.Warnf("clean schema %s failed: %v", d.name, err)
				}
			}
			d.release()
			return
		}
		util.CloseWithErr(d.conn, "db session")
		util.CloseWithErr(d.pool, "db pool")
		d.conn, d.pool = nil, nil
		if d.admin != nil {
			if _, err := d.admin.ExecContext(ctx, drop); err != nil {
				util.Warnf("clean database %s failed: %v", d.name, err)
			}
		}
		d.release()
	})
	return nil
}

func (d *DB) release() {
	util.CloseWithErr(d.conn, "db session")
	util.CloseWithErr(d.pool, "db pool")
	util.CloseWithErr(d.admin, "db admin")
	d.conn, d.pool, d.admin = nil, nil, nil
}

var rowKeywords = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"EXPLAIN":  {},
	"VALUES":   {},
	"DESCRIBE": {},
	"DESC":     {},
	"PRAGMA":   {},
	"TABLE":    {},
}

// ReturnsRows reports whether a statement is read through Query rather
// than Exec, judged by its leading keyword.
func ReturnsRows(sqlText string) bool {
	s := strings.TrimLeft(sqlText, " \t\r\n(")
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end >= 0 {
		s = s[:end]
	}
	_, ok := rowKeywords[strings.ToUpper(s)]
	return ok
}
