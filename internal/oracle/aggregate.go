package oracle

import (
	"fmt"
	"strings"

	"derivefuzz/internal/generator"
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// Aggregate compares a grouped aggregate with a scan of its precomputed
// value. HAVING on the original side becomes a WHERE conjunct on the
// derived side because t1 is already grouped.
type Aggregate struct{}

func (o Aggregate) Name() string { return "Aggregate" }

func (o Aggregate) Kind() schema.OpKind { return schema.OpAggregate }

func (o Aggregate) Build(gen *generator.Generator, in PairInput) (Pair, error) {
	others := in.Shape.OtherColumns()
	names := schema.Names(others)
	otherList, groupBy := "", ""
	if len(names) > 0 {
		otherList = ", " + strings.Join(names, ", ")
		groupBy = " GROUP BY " + strings.Join(names, ", ")
	}

	where, err := gen.Expr(schema.OriginalTable, others, util.RandIntRange(gen.Rand, 3, 4))
	if err != nil {
		return Pair{}, err
	}
	// HAVING stays shallow: no CASE or subquery over the aggregate.
	having, err := gen.Expr(schema.OriginalTable, []schema.Column{{Name: in.Shape.Expr, Type: in.ExprType}}, 2)
	if err != nil {
		return Pair{}, err
	}

	base := fmt.Sprintf("SELECT %s%s FROM %s WHERE %s%s HAVING %s",
		in.Shape.Expr, otherList, schema.OriginalTable, where, groupBy, having)
	derived := fmt.Sprintf("SELECT %s%s FROM %s WHERE %s AND (%s)",
		schema.DerivedColumn, otherList, schema.DerivedTable,
		Substitute(where, schema.OriginalTable, schema.DerivedTable),
		toDerived(having, in.Shape.Expr))
	return Pair{Base: base, Derived: derived}, nil
}
