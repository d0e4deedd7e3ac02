package oracle

import (
	"fmt"

	"derivefuzz/internal/generator"
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// Predicate folds the test expression into the WHERE clause, either as a
// typed column for the expression generator or joined with AND/OR.
type Predicate struct{}

func (o Predicate) Name() string { return "Predicate" }

func (o Predicate) Kind() schema.OpKind { return schema.OpPredicate }

func (o Predicate) Build(gen *generator.Generator, in PairInput) (Pair, error) {
	others := in.Shape.OtherColumns()
	if len(others) == 0 {
		return Pair{}, generator.ErrNoColumns
	}
	names := schema.Names(others)
	sql := fmt.Sprintf("SELECT %s FROM %s", projection(gen, names), schema.OriginalTable)

	var where string
	if util.Chance(gen.Rand, 30) {
		all := append(append([]schema.Column{}, others...), exprColumn(in))
		cond, err := gen.Expr(schema.OriginalTable, all, util.RandIntRange(gen.Rand, 3, 4))
		if err != nil {
			return Pair{}, err
		}
		where = cond
	} else {
		cond, err := gen.Expr(schema.OriginalTable, others, util.RandIntRange(gen.Rand, 3, 4))
		if err != nil {
			return Pair{}, err
		}
		logic := "AND"
		if gen.Rand.Intn(2) == 0 {
			logic = "OR"
		}
		where = fmt.Sprintf("(%s) %s %s", in.Shape.Expr, logic, cond)
	}
	sql += " WHERE " + where
	if util.Chance(gen.Rand, 50) {
		sql += orderBy(gen, names)
	}
	return Pair{Base: sql, Derived: toDerived(sql, in.Shape.Expr)}, nil
}
