// Package oracle builds the equivalent query pairs that compare the original
// table with the derived table holding the precomputed test expression.
package oracle

import (
	"strings"

	"derivefuzz/internal/generator"
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// PairInput is what every oracle needs to build one pair.
type PairInput struct {
	Shape schema.Shape
	// ExprType is the catalog type of the derived column.
	ExprType string
}

// Pair holds two statements that must return the same result.
type Pair struct {
	Base    string
	Derived string
}

// Oracle builds query pairs for one operator kind.
type Oracle interface {
	Name() string
	Kind() schema.OpKind
	Build(gen *generator.Generator, in PairInput) (Pair, error)
}

// ForKind returns the oracle that tests operators of kind.
func ForKind(kind schema.OpKind) Oracle {
	switch kind {
	case schema.OpAggregate:
		return Aggregate{}
	case schema.OpPredicate:
		return Predicate{}
	default:
		return Function{}
	}
}

// toDerived rewrites a statement over the original table into the same
// statement over the derived table and column.
func toDerived(sql, expr string) string {
	return SubstituteAll(sql,
		[2]string{schema.OriginalTable, schema.DerivedTable},
		[2]string{expr, schema.DerivedColumn},
	)
}

// exprColumn lets the test expression stand in as a typed column.
func exprColumn(in PairInput) schema.Column {
	return schema.Column{Name: "(" + in.Shape.Expr + ")", Type: in.ExprType}
}

// orderBy picks a random non-empty subset of names with random directions.
func orderBy(gen *generator.Generator, names []string) string {
	cols := util.Sample(gen.Rand, names, util.RandIntRange(gen.Rand, 1, len(names)))
	items := make([]string, 0, len(cols))
	for _, col := range cols {
		dir := "ASC"
		if gen.Rand.Intn(2) == 0 {
			dir = "DESC"
		}
		items = append(items, col+" "+dir)
	}
	return " ORDER BY " + strings.Join(items, ", ")
}

func projection(gen *generator.Generator, names []string) string {
	return strings.Join(util.Sample(gen.Rand, names, util.RandIntRange(gen.Rand, 1, len(names))), ", ")
}
