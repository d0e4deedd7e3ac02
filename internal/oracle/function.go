package oracle

import (
	"fmt"

	"derivefuzz/internal/generator"
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// Function treats the test expression as one more projected column.
type Function struct{}

func (o Function) Name() string { return "Function" }

func (o Function) Kind() schema.OpKind { return schema.OpFunction }

func (o Function) Build(gen *generator.Generator, in PairInput) (Pair, error) {
	all := append(append([]schema.Column{}, in.Shape.OtherColumns()...), exprColumn(in))
	names := schema.Names(all)

	sql := fmt.Sprintf("SELECT %s FROM %s", projection(gen, names), schema.OriginalTable)
	where, err := gen.Expr(schema.OriginalTable, all, util.RandIntRange(gen.Rand, 3, 5))
	if err != nil {
		return Pair{}, err
	}
	sql += " WHERE " + where
	if util.Chance(gen.Rand, 50) {
		sql += orderBy(gen, names)
	}
	return Pair{Base: sql, Derived: toDerived(sql, in.Shape.Expr)}, nil
}
