package generator

import (
	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"

	"github.com/pkg/errors"
)

// Shape draws the original table for one iteration: testCount columns fed
// to op followed by otherCount passthrough columns, all typed from seedTypes.
func (g *Generator) Shape(kind schema.OpKind, op string, seedTypes []string, testCount, otherCount int) (schema.Shape, error) {
	if len(seedTypes) == 0 {
		return schema.Shape{}, errors.New("empty type seed list")
	}
	if testCount < 1 {
		testCount = 1
	}
	cols := make([]schema.Column, 0, testCount+otherCount)
	for i := 0; i < testCount+otherCount; i++ {
		cols = append(cols, schema.Column{
			Name: schema.ColumnName(i),
			Type: g.ShapeColumnType(util.Pick(g.Rand, seedTypes)),
		})
	}
	shape := schema.Shape{
		Kind:      kind,
		Op:        op,
		Table:     schema.Table{Name: schema.OriginalTable, Columns: cols},
		TestCount: testCount,
	}
	expr, err := TestExpr(op, kind, schema.Names(shape.TestColumns()))
	if err != nil {
		return schema.Shape{}, err
	}
	shape.Expr = expr
	return shape, nil
}
