package repro

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"derivefuzz/internal/dialect"
	"derivefuzz/internal/result"
)

func TestSplitSQL(t *testing.T) {
	input := "CREATE TABLE t0 (c0 INT);\nINSERT INTO t0 VALUES ('a;b');\n-- comment; still comment\nSELECT c0 FROM t0;"
	got := splitSQL(input, true)
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(got), got)
	}
	if got[1] != "INSERT INTO t0 VALUES ('a;b')" {
		t.Fatalf("unexpected insert %q", got[1])
	}
	if !strings.HasSuffix(got[2], "SELECT c0 FROM t0") {
		t.Fatalf("unexpected select %q", got[2])
	}
}

func TestSplitSQLBackslashEscapes(t *testing.T) {
	input := `INSERT INTO t0 VALUES ('it\'s;fine');SELECT 1`
	if got := splitSQL(input, true); len(got) != 2 || got[0] != `INSERT INTO t0 VALUES ('it\'s;fine')` {
		t.Fatalf("expected escaped quote to stay inside the literal, got %q", got)
	}
	pg := `SELECT 'C:\';SELECT 2`
	if got := splitSQL(pg, false); len(got) != 2 || got[0] != `SELECT 'C:\'` {
		t.Fatalf("expected backslash to be literal, got %q", got)
	}
}

func TestSplitSQLBlockComment(t *testing.T) {
	got := splitSQL("/* a; b */ SELECT 1; SELECT 2", false)
	if len(got) != 2 || got[0] != "/* a; b */ SELECT 1" {
		t.Fatalf("unexpected statements %q", got)
	}
}

func TestSplitSQLHashComments(t *testing.T) {
	input := "SELECT 1 # x; y\n;SELECT 2"
	if got := splitSQL(input, true); len(got) != 2 {
		t.Fatalf("expected hash comment to hide ';', got %q", got)
	}
	if got := splitSQL("SELECT 5 # 3;SELECT 2", false); len(got) != 2 || got[0] != "SELECT 5 # 3" {
		t.Fatalf("expected '#' operator to be kept, got %q", got)
	}
}

func TestStatements(t *testing.T) {
	content := "-- target: mysql\nCREATE TABLE t0 (c0 INT);\n-- update: 0\n-- result: length 1\n-- 1\nSELECT c0 FROM t0;\n-- trailing\n"
	got := Statements(content, true)
	want := []string{"CREATE TABLE t0 (c0 INT)", "SELECT c0 FROM t0"}
	if len(got) != len(want) {
		t.Fatalf("unexpected statements %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statement %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type fakeConn struct {
	rows map[string][][]string
}

func (f *fakeConn) Execute(ctx context.Context, sql string) (result.Result, error) {
	if cells, ok := f.rows[sql]; ok {
		return result.NewRows(sql, cells), nil
	}
	return result.NewUpdate(sql, 0), nil
}

func (f *fakeConn) Close() error           { return nil }
func (f *fakeConn) Target() dialect.Target { return dialect.MySQL }
func (f *fakeConn) Database() string       { return "derivefuzz_repro" }

func TestReplayCountsMismatches(t *testing.T) {
	conn := &fakeConn{rows: map[string][][]string{
		"SELECT c0 FROM t0": {{"1"}, {"2"}},
		"SELECT c0 FROM t1": {{"2"}, {"1"}},
		"SELECT c1 FROM t0": {{"1"}},
		"SELECT c1 FROM t1": {{"None"}},
	}}
	var out bytes.Buffer
	sum, err := replay(context.Background(), &out, conn, []string{
		"CREATE TABLE t0 (c0 INT)",
		"SELECT c0 FROM t0",
		"SELECT c0 FROM t1",
		"SELECT c1 FROM t0",
		"SELECT c1 FROM t1",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sum.Statements != 5 || sum.Pairs != 2 || sum.Mismatches != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if !strings.Contains(out.String(), "pair=2 mismatch") {
		t.Fatalf("mismatch not reported:\n%s", out.String())
	}
}
