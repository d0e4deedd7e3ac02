// Package repro replays a reproduction artifact against a live target and
// re-checks its query pairs.
package repro

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"derivefuzz/internal/config"
	"derivefuzz/internal/db"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/result"
	"derivefuzz/internal/util"

	"github.com/pkg/errors"
)

// Options configures a reproduction run.
type Options struct {
	File             string
	Target           dialect.Target
	Endpoint         config.TargetConfig
	Database         string
	StatementTimeout time.Duration
	Out              io.Writer
}

// Summary counts what a replay observed.
type Summary struct {
	Statements int
	Pairs      int
	Mismatches int
}

// Run executes every statement of the artifact in a fresh database and
// compares consecutive SELECT results as base/derived pairs.
func Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.File == "" {
		return Summary{}, fmt.Errorf("file is required")
	}
	if opts.Database == "" {
		opts.Database = "derivefuzz_repro"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	content, err := os.ReadFile(opts.File)
	if err != nil {
		return Summary{}, errors.Wrap(err, "read artifact")
	}
	statements := Statements(string(content), opts.Target.MySQLSyntax())

	conn, err := db.Open(ctx, db.Options{
		Target:           opts.Target,
		Endpoint:         opts.Endpoint,
		StatementTimeout: opts.StatementTimeout,
	}, opts.Database)
	if err != nil {
		return Summary{}, err
	}
	defer util.CloseWithErr(conn, "repro db")

	fmt.Fprintf(opts.Out, "target=%s database=%s statements=%d\n", opts.Target, opts.Database, len(statements))
	printVersion(ctx, opts.Out, conn)
	return replay(ctx, opts.Out, conn, statements)
}

func replay(ctx context.Context, out io.Writer, conn db.Conn, statements []string) (Summary, error) {
	sum := Summary{Statements: len(statements)}
	var selects []result.Result
	for idx, stmt := range statements {
		res, err := conn.Execute(ctx, stmt)
		if err != nil {
			return sum, errors.Wrapf(err, "stmt=%d", idx+1)
		}
		if res.IsError() && !db.ReturnsRows(stmt) {
			fmt.Fprintf(out, "stmt=%d err=%s sql=%s\n", idx+1, res.ErrorText(), stmt)
		}
		if db.ReturnsRows(stmt) {
			selects = append(selects, res)
		}
	}
	if len(selects)%2 == 1 {
		util.Warnf("unpaired trailing query ignored: %s", selects[len(selects)-1].SQL)
	}
	for i := 0; i+1 < len(selects); i += 2 {
		base, derived := selects[i], selects[i+1]
		sum.Pairs++
		if base.Equal(derived) {
			continue
		}
		sum.Mismatches++
		fmt.Fprintf(out, "pair=%d mismatch\n", sum.Pairs)
		writeResult(out, base)
		writeResult(out, derived)
	}
	fmt.Fprintf(out, "pairs=%d mismatches=%d\n", sum.Pairs, sum.Mismatches)
	return sum, nil
}

func writeResult(out io.Writer, res result.Result) {
	fmt.Fprintf(out, "%s;\n", res.SQL)
	for _, line := range res.Lines() {
		fmt.Fprintln(out, line)
	}
}

// Statements splits an artifact into executable statements, dropping the
// comment lines that precede them. mysql selects MySQL lexical rules.
func Statements(content string, mysql bool) []string {
	var out []string
	for _, stmt := range splitSQL(content, mysql) {
		if body := stripLeadingComments(stmt); body != "" {
			out = append(out, body)
		}
	}
	return out
}

func stripLeadingComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	for len(lines) > 0 {
		line := strings.TrimSpace(lines[0])
		if line != "" && !strings.HasPrefix(line, "--") {
			break
		}
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func printVersion(ctx context.Context, out io.Writer, conn db.Conn) {
	queries := []string{"SELECT version()"}
	if conn.Target() == dialect.TiDB {
		queries = append([]string{"SELECT tidb_version()"}, queries...)
	}
	for _, q := range queries {
		res, err := conn.Execute(ctx, q)
		if err != nil || res.IsError() {
			continue
		}
		if v, ok := res.FirstCell(); ok && strings.TrimSpace(v) != "" {
			fmt.Fprintf(out, "version=%s\n", strings.ReplaceAll(v, "\n", " "))
			return
		}
	}
}
