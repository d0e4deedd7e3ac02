package runner

import (
	"fmt"

	"derivefuzz/internal/oracle"
	"derivefuzz/internal/result"
	"derivefuzz/internal/schema"
)

// iterationRun accumulates what one iteration executed. Original[0] and
// Derived[0] are the two CREATE TABLE statements; later entries are the
// executed query pairs, index-aligned.
type iterationRun struct {
	loop         int
	seed         int64
	shape        schema.Shape
	exprType     string // full column type, drives literal generation
	catalogType  string // bare catalog type name, reported in headers
	original     []result.Result
	derived      []result.Result
	inserts      []result.Result
	derivedSetup []result.Result
}

func (run *iterationRun) addPair(base, derived result.Result) {
	run.original = append(run.original, base)
	run.derived = append(run.derived, derived)
}

func (run *iterationRun) applyDerived(d oracle.Derived) {
	if d.Create.SQL != "" {
		run.derived = append(run.derived, d.Create)
	}
	run.derivedSetup = append(run.derivedSetup, d.Setup...)
}

// divergenceLines renders every unequal, non-blacklisted pair after the
// schema pair.
func (run *iterationRun) divergenceLines() []string {
	var out []string
	for i := 1; i < len(run.original) && i < len(run.derived); i++ {
		r1, r2 := run.original[i], run.derived[i]
		if r1.Equal(r2) || r1.Blacklisted || r2.Blacklisted {
			continue
		}
		out = append(out, r1.Lines()...)
		out = append(out, r2.Lines()...)
	}
	return out
}

func (run *iterationRun) header() []string {
	return []string{
		fmt.Sprintf("-- seed: %d, iteration: %d", run.seed, run.loop),
		fmt.Sprintf("-- op: %s (%s), types: %s, derived type: %s",
			run.shape.Op, run.shape.Kind, run.shape.TypeSummary(), run.catalogType),
	}
}

// statements lists the reproduction statements: the original table, its
// inserts, the derived table with its setup, then each pair in order.
func (run *iterationRun) statements() []string {
	var out []string
	if len(run.original) > 0 {
		out = append(out, run.original[0].SQL)
	}
	for _, r := range run.inserts {
		out = append(out, r.SQL)
	}
	if len(run.derived) > 0 {
		out = append(out, run.derived[0].SQL)
	}
	for _, r := range run.derivedSetup {
		out = append(out, r.SQL)
	}
	for i := 1; i < len(run.original) && i < len(run.derived); i++ {
		out = append(out, run.original[i].SQL, run.derived[i].SQL)
	}
	return out
}

// artifactLines assembles detail comments followed by the statements.
func (run *iterationRun) artifactLines(details []string) []string {
	out := append([]string{}, run.header()...)
	out = append(out, details...)
	return append(out, run.statements()...)
}
