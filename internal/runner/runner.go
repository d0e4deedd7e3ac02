// Package runner drives the derived-table oracle loop against one target.
package runner

import (
	"context"
	"fmt"

	"derivefuzz/internal/config"
	"derivefuzz/internal/db"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/generator"
	"derivefuzz/internal/oracle"
	"derivefuzz/internal/report"
	"derivefuzz/internal/result"
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
	"derivefuzz/internal/validator"

	"github.com/pkg/errors"
)

// Options wires one Runner.
type Options struct {
	Config config.Config
	Target dialect.Target
	Seeds  config.Seeds
	Open   db.Opener
	Writer *report.Writer
	Stats  *Stats
	// Worker is the index of this runner; Workers is the total count. With
	// more than one worker, database and artifact names carry the index.
	Worker  int
	Workers int
	Seed    int64
}

// Runner owns one generator and runs iterations sequentially.
type Runner struct {
	cfg       config.Config
	target    dialect.Target
	seeds     config.Seeds
	open      db.Opener
	gen       *generator.Generator
	writer    *report.Writer
	stats     *Stats
	validator *validator.Validator
	worker    int
	workers   int
	loop      int
	current   *iterationRun
}

// New constructs a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		cfg:     opts.Config,
		target:  opts.Target,
		seeds:   opts.Seeds,
		open:    opts.Open,
		gen:     generator.New(opts.Target, opts.Seed, opts.Config.ValueMaxDepth),
		writer:  opts.Writer,
		stats:   opts.Stats,
		worker:  opts.Worker,
		workers: opts.Workers,
	}
	if r.stats == nil {
		r.stats = NewStats()
	}
	if opts.Config.ValidateSQL && opts.Target.MySQLSyntax() {
		r.validator = validator.New()
	}
	return r
}

// Seed reports the seed of the runner's random stream.
func (r *Runner) Seed() int64 {
	return r.gen.Seed
}

// Run executes iterations until ctx is cancelled or the configured
// iteration count is reached. Any other returned error is fatal; the
// in-flight iteration is exported before returning.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("runner panic: %v", p)
		}
		if err != nil && ctx.Err() == nil {
			util.Errorf("main error: %v", err)
			r.exportFatal(err)
		}
		if ctx.Err() != nil {
			err = nil
		}
	}()
	util.Infof("runner start target=%s worker=%d seed=%d", r.target, r.worker, r.gen.Seed)
	rejected := 0
	for r.cfg.Iterations <= 0 || r.loop < r.cfg.Iterations {
		if ctx.Err() != nil {
			return nil
		}
		shape, ok := r.selectShape()
		if !ok {
			rejected++
			if rejected >= maxRejectedDraws {
				return errors.Errorf("%d draws in a row rejected, check the operator and type seeds", rejected)
			}
			continue
		}
		rejected = 0
		r.loop++
		if err := r.runIteration(ctx, shape); err != nil {
			return err
		}
		r.current = nil
	}
	return nil
}

// maxRejectedDraws bounds consecutive rejected draws. Only accepted draws
// count as iterations, so seeds that never yield a shape would spin forever.
const maxRejectedDraws = 10000

// runIteration walks one iteration through every state. A nil error means
// the iteration ended normally, including early stops.
func (r *Runner) runIteration(ctx context.Context, shape schema.Shape) error {
	r.stats.Iterations.Add(1)
	run := &iterationRun{loop: r.loop, seed: r.gen.Seed, shape: shape}
	r.current = run

	conn, err := r.open(ctx, r.databaseName())
	if err != nil {
		return errors.Wrapf(err, "open %s", r.databaseName())
	}
	defer util.CloseWithErr(conn, "iteration connection")

	if stop, err := r.buildSchema(ctx, conn, run); err != nil || stop {
		return err
	}
	if stop, err := r.populateData(ctx, conn, run); err != nil || stop {
		return err
	}
	if stop, err := r.materializeDerived(ctx, conn, run); err != nil || stop {
		return err
	}
	diverged, err := r.runOracleQueries(ctx, conn, run)
	if err != nil {
		return err
	}
	util.CloseWithErr(conn, "iteration connection")
	if diverged {
		r.export(ctx, run, r.artifactName("test", ""), run.divergenceLines())
	}
	return nil
}

func (r *Runner) selectShape() (schema.Shape, bool) {
	kinds := []schema.OpKind{schema.OpAggregate, schema.OpFunction, schema.OpPredicate}
	weights := []int{r.cfg.Weights.Aggregate, r.cfg.Weights.Function, r.cfg.Weights.Predicate}
	kind := kinds[util.PickWeighted(r.gen.Rand, weights)]
	ops := r.opsFor(kind)
	if len(ops) == 0 {
		r.stats.RejectedDraws.Add(1)
		return schema.Shape{}, false
	}
	op := util.Pick(r.gen.Rand, ops)
	testCount := util.RandIntRange(r.gen.Rand, 1, r.cfg.TestColumnCount)
	otherCount := util.RandIntRange(r.gen.Rand, 0, r.cfg.OtherColumnCount)
	if kind != schema.OpFunction && otherCount < 1 {
		otherCount = 1
	}
	shape, err := r.gen.Shape(kind, op, r.seeds.Types, testCount, otherCount)
	if err != nil {
		r.stats.RejectedDraws.Add(1)
		util.Detailf("draw rejected op=%s columns=%d: %v", op, testCount, err)
		return schema.Shape{}, false
	}
	return shape, true
}

func (r *Runner) opsFor(kind schema.OpKind) []string {
	switch kind {
	case schema.OpAggregate:
		return r.seeds.Aggregates
	case schema.OpPredicate:
		return r.seeds.Predicates
	default:
		return r.seeds.Functions
	}
}

// buildSchema creates the original table, inserts one validation row and
// evaluates the test expression once.
func (r *Runner) buildSchema(ctx context.Context, conn db.Conn, run *iterationRun) (bool, error) {
	table := run.shape.Table
	if _, err := conn.Execute(ctx, generator.DropTableSQL(table.Name)); err != nil {
		return true, err
	}
	create, err := conn.Execute(ctx, r.gen.CreateTableSQL(table))
	if err != nil {
		return true, err
	}
	run.original = append(run.original, create)
	if create.IsError() {
		return r.earlyStop(stopCreateTable, "failed to create table %s: %s, sql: %s", table.Name, create.ErrorText(), create.SQL), nil
	}
	if stop, err := r.insertRow(ctx, conn, run); err != nil || stop {
		return stop, err
	}
	sel, err := conn.Execute(ctx, fmt.Sprintf("SELECT %s FROM %s", run.shape.Expr, table.Name))
	if err != nil {
		return true, err
	}
	if sel.IsError() {
		return r.earlyStop(stopSelectExpr, "failed to select data from %s: %s, sql: %s", table.Name, sel.ErrorText(), sel.SQL), nil
	}
	return false, nil
}

func (r *Runner) insertRow(ctx context.Context, conn db.Conn, run *iterationRun) (bool, error) {
	sql, err := r.gen.InsertSQL(run.shape.Table)
	if err != nil {
		return r.earlyStop(stopValue, "failed to generate row for %s: %v", run.shape.TypeSummary(), err), nil
	}
	res, err := conn.Execute(ctx, sql)
	if err != nil {
		return true, err
	}
	run.inserts = append(run.inserts, res)
	if res.IsError() && len(run.inserts) == 1 {
		return r.earlyStop(stopInsert, "failed to insert data into %s: %s, sql: %s", run.shape.Table.Name, res.ErrorText(), res.SQL), nil
	}
	return false, nil
}

// populateData adds random rows. Individual insert failures are kept in
// the record and do not stop the iteration.
func (r *Runner) populateData(ctx context.Context, conn db.Conn, run *iterationRun) (bool, error) {
	n := util.RandIntRange(r.gen.Rand, 1, r.cfg.InsertRowsMax)
	for i := 0; i < n; i++ {
		if stop, err := r.insertRow(ctx, conn, run); err != nil || stop {
			return stop, err
		}
	}
	return false, nil
}

func (r *Runner) materializeDerived(ctx context.Context, conn db.Conn, run *iterationRun) (bool, error) {
	if _, err := conn.Execute(ctx, generator.DropTableSQL(schema.DerivedTable)); err != nil {
		return true, err
	}
	d, err := oracle.BuildDerived(ctx, conn, run.shape)
	run.applyDerived(d)
	if errors.Is(err, oracle.ErrDerivedFailed) {
		return r.earlyStop(stopDerived, "%v", err), nil
	}
	if err != nil {
		return true, err
	}
	typ, err := oracle.LookupType(ctx, conn, schema.DerivedTable, schema.DerivedColumn)
	if errors.Is(err, oracle.ErrNoCatalogRow) {
		return r.earlyStop(stopCatalogType, "%v", err), nil
	}
	if err != nil {
		return true, err
	}
	run.exprType = typ.DDL()
	run.catalogType = typ.Data
	return false, nil
}

// runOracleQueries executes the configured number of pairs. It stops at the
// first divergence. Crashes are exported and the loop goes on.
func (r *Runner) runOracleQueries(ctx context.Context, conn db.Conn, run *iterationRun) (bool, error) {
	util.Infof("testing type: %s, op: %s", run.shape.TypeSummary(), run.shape.Op)
	o := oracle.ForKind(run.shape.Kind)
	in := oracle.PairInput{Shape: run.shape, ExprType: run.exprType}
	for i := 0; i < r.cfg.SelectCount; i++ {
		pair, err := o.Build(r.gen, in)
		if err != nil {
			r.earlyStop(stopPairBuild, "failed to build %s pair for %s: %v", o.Name(), run.exprType, err)
			return false, nil
		}
		r.validate(pair)
		base, err := conn.Execute(ctx, pair.Base)
		var derived result.Result
		if err == nil {
			derived, err = conn.Execute(ctx, pair.Derived)
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			r.crash(ctx, run, pair, err)
			continue
		}
		run.addPair(base, derived)
		r.stats.Pairs.Add(1)
		if base.Blacklisted || derived.Blacklisted {
			r.stats.Blacklisted.Add(1)
			text := base.ErrorText()
			if text == "" {
				text = derived.ErrorText()
			}
			util.Infof("skipping blacklisted error: %s", text)
			continue
		}
		if !base.Equal(derived) {
			r.stats.Divergences.Add(1)
			r.logDivergence(base, derived)
			return true, nil
		}
	}
	return false, nil
}

func (r *Runner) validate(pair oracle.Pair) {
	if r.validator == nil {
		return
	}
	r.stats.Validated.Add(1)
	if err := r.validator.ValidateAll(pair.Base, pair.Derived); err != nil {
		r.stats.ParseFailures.Add(1)
		util.Detailf("parser rejected generated pair: %v", err)
	}
}

func (r *Runner) earlyStop(reason, format string, args ...any) bool {
	r.stats.earlyStop(reason)
	util.Infof("Early stop, reason: %s", fmt.Sprintf(format, args...))
	return true
}
