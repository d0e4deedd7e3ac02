package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"testing"

	"derivefuzz/internal/config"
	"derivefuzz/internal/dialect"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestReturnsRows(t *testing.T) {
	cases := map[string]bool{
		"SELECT 1":                             true,
		"  select c0 FROM t0":                  true,
		"(SELECT 1) UNION (SELECT 2)":          true,
		"WITH x AS (SELECT 1) SELECT * FROM x": true,
		"explain select 1":                     true,
		"INSERT INTO t0 VALUES (1)":            false,
		"CREATE TABLE t1 AS (SELECT 1)":        false,
		"DROP TABLE IF EXISTS t0":              false,
		"":                                     false,
	}
	for sqlText, want := range cases {
		if got := ReturnsRows(sqlText); got != want {
			t.Fatalf("ReturnsRows(%q)=%v want %v", sqlText, got, want)
		}
	}
}

func TestSplitError(t *testing.T) {
	code, msg := SplitError(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1064, Message: "syntax"}))
	if code != "1064" || msg != "syntax" {
		t.Fatalf("mysql split got %q %q", code, msg)
	}
	code, msg = SplitError(&pq.Error{Code: "42P01", Message: "relation does not exist"})
	if code != "42P01" || msg != "relation does not exist" {
		t.Fatalf("pq split got %q %q", code, msg)
	}
	code, msg = SplitError(&pgconn.PgError{Code: "22012", Message: "division by zero"})
	if code != "22012" || msg != "division by zero" {
		t.Fatalf("pgx split got %q %q", code, msg)
	}
	code, msg = SplitError(fmt.Errorf("boom"))
	if code != "" || msg != "boom" {
		t.Fatalf("plain split got %q %q", code, msg)
	}
}

func TestIsTransportError(t *testing.T) {
	ctx := context.Background()
	if IsTransportError(ctx, nil) {
		t.Fatalf("nil is not a transport error")
	}
	for _, err := range []error{driver.ErrBadConn, mysql.ErrInvalidConn, io.EOF, fmt.Errorf("read: %w", io.ErrUnexpectedEOF)} {
		if !IsTransportError(ctx, err) {
			t.Fatalf("expected transport error for %v", err)
		}
	}
	if IsTransportError(ctx, &mysql.MySQLError{Number: 1146, Message: "no table"}) {
		t.Fatalf("engine error classified as transport")
	}
	if IsTransportError(ctx, context.DeadlineExceeded) {
		t.Fatalf("statement timeout classified as transport")
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if !IsTransportError(cancelled, context.Canceled) {
		t.Fatalf("parent cancellation should end the session")
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(dialect.TiDB, config.TargetConfig{User: "root", Params: map[string]string{"tidb_slow_log_threshold": "1"}}, "database3")
	if !strings.Contains(dsn, "root@tcp(127.0.0.1:4000)/database3") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "tidb_slow_log_threshold=1") {
		t.Fatalf("params missing from %s", dsn)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(dialect.RisingWave, config.TargetConfig{Host: "db", User: "root"}, "dev")
	if !strings.HasPrefix(dsn, "postgres://root@db:4566/dev?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("sslmode missing from %s", dsn)
	}
}

func TestOpenExternalRequiresDriver(t *testing.T) {
	_, err := openPool(dialect.MonetDB, config.TargetConfig{Driver: "no-such-driver", DSN: "x"}, "")
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected unregistered driver error, got %v", err)
	}
}

func TestDefaultDatabase(t *testing.T) {
	if got := defaultDatabase(dialect.Postgres, config.TargetConfig{}); got != "postgres" {
		t.Fatalf("postgres default got %q", got)
	}
	if got := defaultDatabase(dialect.RisingWave, config.TargetConfig{}); got != "dev" {
		t.Fatalf("risingwave default got %q", got)
	}
	if got := defaultDatabase(dialect.DuckDB, config.TargetConfig{Database: "main"}); got != "main" {
		t.Fatalf("explicit database got %q", got)
	}
}
