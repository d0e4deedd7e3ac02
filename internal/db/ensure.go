package db

import (
	"context"
	"database/sql"

	"derivefuzz/internal/dialect"

	"github.com/pkg/errors"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureIsolation drops and recreates the per-iteration database or schema
// so that no state from an earlier use of the same name survives.
func EnsureIsolation(ctx context.Context, exec execer, target dialect.Target, name string) error {
	if name == "" {
		return errors.New("isolation name is empty")
	}
	if _, err := exec.ExecContext(ctx, target.DropIsolationSQL(name)); err != nil {
		return errors.Wrapf(err, "drop %s", name)
	}
	if _, err := exec.ExecContext(ctx, target.CreateIsolationSQL(name)); err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	return nil
}
