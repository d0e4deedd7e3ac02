package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"derivefuzz/internal/config"
	"derivefuzz/internal/db"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/report"
	"derivefuzz/internal/result"
)

type fakeEngine struct {
	mu       sync.Mutex
	opened   []string
	executed []string
	closes   int
	openErr  error
	respond  func(sql string) *reply
}

func (e *fakeEngine) open(_ context.Context, name string) (db.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opened = append(e.opened, name)
	return &fakeConn{engine: e, name: name}, nil
}

// reply overrides the default response; a nil reply falls through.
type reply struct {
	res result.Result
	err error
}

type fakeConn struct {
	engine *fakeEngine
	name   string
}

func (c *fakeConn) Execute(_ context.Context, sql string) (result.Result, error) {
	c.engine.mu.Lock()
	c.engine.executed = append(c.engine.executed, sql)
	respond := c.engine.respond
	c.engine.mu.Unlock()
	if respond != nil {
		if rep := respond(sql); rep != nil {
			return rep.res, rep.err
		}
	}
	switch {
	case strings.Contains(sql, "INFORMATION_SCHEMA"):
		return result.NewRows(sql, [][]string{{"bigint", "bigint(20)"}}), nil
	case db.ReturnsRows(sql):
		return result.NewRows(sql, [][]string{{"1"}}), nil
	default:
		return result.NewUpdate(sql, 0), nil
	}
}

func (c *fakeConn) Close() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.engine.closes++
	return nil
}

func (c *fakeConn) Target() dialect.Target { return dialect.MySQL }

func (c *fakeConn) Database() string { return c.name }

func isDerivedQuery(sql string) bool {
	return db.ReturnsRows(sql) && strings.Contains(sql, "FROM t1")
}

func testConfig() config.Config {
	return config.Config{
		Iterations:       1,
		Workers:          1,
		TestColumnCount:  1,
		OtherColumnCount: 1,
		SelectCount:      4,
		InsertRowsMax:    2,
		ValueMaxDepth:    3,
		Weights:          config.OpWeights{Function: 1},
	}
}

func testSeeds() config.Seeds {
	return config.Seeds{Types: []string{"INT"}, Functions: []string{"+"}}
}

func newTestRunner(t *testing.T, engine *fakeEngine, cfg config.Config) (*Runner, string) {
	t.Helper()
	out := t.TempDir()
	r := New(Options{
		Config:  cfg,
		Target:  dialect.MySQL,
		Seeds:   testSeeds(),
		Open:    engine.open,
		Writer:  report.New(out, nil),
		Workers: 1,
		Seed:    42,
	})
	return r, out
}

func artifacts(t *testing.T, out string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(out, "*", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return files
}

func TestRunWithoutDivergence(t *testing.T) {
	engine := &fakeEngine{}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.stats.Pairs.Load(); got != 4 {
		t.Fatalf("expected 4 pairs, got %d", got)
	}
	if !reflect.DeepEqual(engine.opened, []string{"database1"}) {
		t.Fatalf("unexpected databases %v", engine.opened)
	}
	if engine.closes == 0 {
		t.Fatalf("connection was not closed")
	}
	if files := artifacts(t, out); len(files) != 0 {
		t.Fatalf("unexpected artifacts %v", files)
	}
}

func TestRunDivergenceExportsArtifact(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if isDerivedQuery(sql) {
			return &reply{res: result.NewRows(sql, [][]string{{"2"}})}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.stats.Divergences.Load() != 1 || r.stats.Pairs.Load() != 1 {
		t.Fatalf("expected the first pair to diverge and stop, pairs=%d divergences=%d",
			r.stats.Pairs.Load(), r.stats.Divergences.Load())
	}
	path := filepath.Join(out, report.ArtifactDir("+", 1), "test_mysql_1.sql")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"-- result: length 1", "-- 1", "-- result: length 1", "-- 2"}
	if !reflect.DeepEqual(lines[2:6], want) {
		t.Fatalf("unexpected detail lines %q", lines[2:6])
	}
	if !strings.HasPrefix(lines[6], "CREATE TABLE t0 ") {
		t.Fatalf("expected original table after details, got %q", lines[6])
	}
	createDerived := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "CREATE TABLE t1 AS ") {
			createDerived = i
			break
		}
	}
	if createDerived < 8 {
		t.Fatalf("derived table missing or without inserts:\n%s", data)
	}
	for _, line := range lines[7:createDerived] {
		if !strings.HasPrefix(line, "INSERT INTO t0 ") || !strings.HasSuffix(line, ";") {
			t.Fatalf("expected inserts between the two tables, got %q", line)
		}
	}
	n := len(lines)
	if !strings.Contains(lines[n-2], "FROM t0") || !strings.Contains(lines[n-1], "FROM t1") {
		t.Fatalf("expected base/derived pair at the end, got %q %q", lines[n-2], lines[n-1])
	}
}

func TestRunBlacklistedNeverDiverges(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if isDerivedQuery(sql) {
			return &reply{res: result.NewError(sql, "1105", "Unsupported collation", []string{"unsupported"})}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.stats.Divergences.Load() != 0 {
		t.Fatalf("blacklisted error reported as divergence")
	}
	if got := r.stats.Blacklisted.Load(); got != 4 {
		t.Fatalf("expected 4 blacklisted pairs, got %d", got)
	}
	if files := artifacts(t, out); len(files) != 0 {
		t.Fatalf("unexpected artifacts %v", files)
	}
}

func TestRunCrashContinues(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if isDerivedQuery(sql) {
			return &reply{err: errors.New("invalid connection")}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.stats.Crashes.Load(); got != 4 {
		t.Fatalf("expected every repetition to run and crash, got %d", got)
	}
	path := filepath.Join(out, report.ArtifactDir("+", 1), "crash_test_mysql_1_error.sql")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read crash artifact: %v", err)
	}
	if !strings.Contains(string(data), "-- crash: invalid connection") {
		t.Fatalf("crash detail missing:\n%s", data)
	}
}

func TestRunEarlyStopOnInsertFailure(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if strings.HasPrefix(sql, "INSERT") {
			return &reply{res: result.NewError(sql, "1366", "Incorrect integer value", nil)}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.stats.EarlyStops()[stopInsert]; got != 1 {
		t.Fatalf("expected one insert early stop, got %d", got)
	}
	if r.stats.Pairs.Load() != 0 || engine.closes == 0 {
		t.Fatalf("iteration should end before queries and close the connection")
	}
	if files := artifacts(t, out); len(files) != 0 {
		t.Fatalf("unexpected artifacts %v", files)
	}
}

func TestRunOpenFailureIsFatal(t *testing.T) {
	engine := &fakeEngine{openErr: errors.New("connection refused")}
	r, _ := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected fatal error")
	}
}

func TestRunFatalExportsInFlightIteration(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if strings.Contains(sql, "INFORMATION_SCHEMA") {
			return &reply{err: errors.New("broken pipe")}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected fatal error")
	}
	path := filepath.Join(out, report.ArtifactDir("+", 1), "crash_test_mysql_main_error.sql")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected main error artifact: %v", err)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	engine := &fakeEngine{}
	cfg := testConfig()
	cfg.Iterations = 0
	r, _ := newTestRunner(t, engine, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("cancelled run should end cleanly: %v", err)
	}
	if len(engine.opened) != 0 {
		t.Fatalf("no iteration should start after cancellation")
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 3
	cfg.Weights = config.OpWeights{Aggregate: 1, Function: 1, Predicate: 1}
	seeds := config.Seeds{
		Types:      []string{"INT", "VARCHAR", "DOUBLE"},
		Aggregates: []string{"SUM", "COUNT"},
		Functions:  []string{"+", "ABS"},
		Predicates: []string{"IS NULL", ">"},
	}
	run := func() []string {
		engine := &fakeEngine{}
		r := New(Options{Config: cfg, Target: dialect.MySQL, Seeds: seeds, Open: engine.open, Workers: 1, Seed: 7})
		if err := r.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		return engine.executed
	}
	a, b := run(), run()
	if len(a) == 0 || !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different statement streams")
	}
}

func TestNamesWithWorkers(t *testing.T) {
	r := New(Options{Config: testConfig(), Target: dialect.TiDB, Worker: 1, Workers: 2, Seed: 1})
	r.loop = 3
	if got := r.databaseName(); got != "w1_database3" {
		t.Fatalf("unexpected database name %q", got)
	}
	if got := r.artifactName("test", ""); got != "test_tidb_w1_3" {
		t.Fatalf("unexpected artifact name %q", got)
	}
	r.workers = 1
	if got := r.artifactName("crash_test", "_error"); got != "crash_test_tidb_3_error" {
		t.Fatalf("unexpected artifact name %q", got)
	}
}

func TestRunTimeoutNeverDiverges(t *testing.T) {
	engine := &fakeEngine{respond: func(sql string) *reply {
		if db.ReturnsRows(sql) && strings.Contains(sql, "FROM t0 WHERE ") {
			return &reply{res: result.NewTimeout(sql)}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, testConfig())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.stats.Divergences.Load() != 0 {
		t.Fatalf("timed out query reported as divergence")
	}
	if got := r.stats.Blacklisted.Load(); got != 4 {
		t.Fatalf("expected 4 skipped pairs, got %d", got)
	}
	if files := artifacts(t, out); len(files) != 0 {
		t.Fatalf("unexpected artifacts %v", files)
	}
}

func TestRunUsesFullCatalogType(t *testing.T) {
	cfg := testConfig()
	cfg.SelectCount = 20
	derivedQueries := 0
	engine := &fakeEngine{respond: func(sql string) *reply {
		switch {
		case strings.Contains(sql, "INFORMATION_SCHEMA"):
			return &reply{res: result.NewRows(sql, [][]string{{"enum", "enum('a','b')"}})}
		case isDerivedQuery(sql):
			derivedQueries++
			if derivedQueries == cfg.SelectCount {
				return &reply{res: result.NewRows(sql, [][]string{{"2"}})}
			}
		}
		return nil
	}}
	r, out := newTestRunner(t, engine, cfg)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.stats.EarlyStops()[stopPairBuild]; got != 0 {
		t.Fatalf("pairs failed to build from the catalog type, early stops %d", got)
	}
	if got := r.stats.Pairs.Load(); got != int64(cfg.SelectCount) {
		t.Fatalf("expected %d pairs, got %d", cfg.SelectCount, got)
	}
	data, err := os.ReadFile(filepath.Join(out, report.ArtifactDir("+", 1), "test_mysql_1.sql"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if !strings.HasSuffix(lines[1], "derived type: enum") {
		t.Fatalf("header should carry the bare catalog type, got %q", lines[1])
	}
}

func TestRunCountsOnlyAcceptedDraws(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 3
	cfg.Weights = config.OpWeights{Aggregate: 1, Function: 1}
	engine := &fakeEngine{}
	r := New(Options{
		Config:  cfg,
		Target:  dialect.MySQL,
		Seeds:   config.Seeds{Types: []string{"INT"}, Functions: []string{"+"}},
		Open:    engine.open,
		Workers: 1,
		Seed:    42,
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.stats.Iterations.Load(); got != 3 {
		t.Fatalf("expected 3 iterations, got %d (rejected %d)", got, r.stats.RejectedDraws.Load())
	}
	want := []string{"database1", "database2", "database3"}
	if !reflect.DeepEqual(engine.opened, want) {
		t.Fatalf("unexpected databases %v", engine.opened)
	}
}

func TestRunUnusableSeedsIsFatal(t *testing.T) {
	engine := &fakeEngine{}
	r := New(Options{
		Config:  testConfig(),
		Target:  dialect.MySQL,
		Seeds:   config.Seeds{Types: []string{"INT"}},
		Open:    engine.open,
		Workers: 1,
		Seed:    42,
	})
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected an error when no draw can succeed")
	}
	if len(engine.opened) != 0 || r.stats.RejectedDraws.Load() != maxRejectedDraws {
		t.Fatalf("opened %v after %d rejected draws", engine.opened, r.stats.RejectedDraws.Load())
	}
}
