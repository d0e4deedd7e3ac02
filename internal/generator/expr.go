package generator

import (
	"fmt"
	"strings"

	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// Constant is a literal with optional type information. A destination type
// turns the literal into an explicit cast when rendered.
type Constant struct {
	Value      string
	OriginType string
	DestType   string
}

func (c Constant) String() string {
	if c.DestType != "" {
		return fmt.Sprintf("(CAST((%s) AS %s))", c.Value, c.DestType)
	}
	return c.Value
}

type exprOp string

const (
	opColumn   exprOp = "COLUMN"
	opConstant exprOp = "CONSTANT"
	opCase     exprOp = "CASE"
	opSubquery exprOp = "SUBQUERY"
)

var binaryExprOps = []exprOp{"=", "!=", ">", "<=", "AND", "OR"}

var constantExprOps = []string{"+", "*", "/", "<<", ">>", "&", "|", "^"}

// exprOps lists what may appear at depth; depth 1 is leaves only.
func exprOps(depth int) []exprOp {
	var ops []exprOp
	if depth == 1 {
		ops = append(ops, opColumn, opConstant)
	}
	if depth > 1 {
		ops = append(ops, binaryExprOps...)
	}
	if depth > 2 {
		ops = append(ops, opCase, opSubquery)
	}
	return ops
}

// Expr composes a random expression over cols, nesting at most depth levels.
// Column names are used verbatim, so a parenthesized expression can stand
// in as a column. depth below 1 is treated as 1.
func (g *Generator) Expr(table string, cols []schema.Column, depth int) (string, error) {
	if len(cols) == 0 {
		return "", ErrNoColumns
	}
	if depth < 1 {
		depth = 1
	}
	switch op := util.Pick(g.Rand, exprOps(depth)); op {
	case opColumn:
		return util.Pick(g.Rand, cols).Name, nil
	case opConstant:
		return g.constantLeaf(cols)
	case opCase:
		cond, err := g.Expr(table, cols, depth-1)
		if err != nil {
			return "", err
		}
		then, err := g.ExprConstant(util.Pick(g.Rand, cols).Type, "")
		if err != nil {
			return "", err
		}
		other, err := g.ExprConstant(util.Pick(g.Rand, cols).Type, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CASE WHEN %s THEN (%s) ELSE (%s) END)", cond, then, other), nil
	case opSubquery:
		left, err := g.Expr(table, cols, depth-1)
		if err != nil {
			return "", err
		}
		where, err := g.Expr(table, cols, depth-1)
		if err != nil {
			return "", err
		}
		in := "IN"
		if g.Rand.Intn(2) == 0 {
			in = "NOT IN"
		}
		return fmt.Sprintf("%s %s (SELECT %s FROM %s WHERE %s)", left, in, util.Pick(g.Rand, cols).Name, table, where), nil
	default:
		left, err := g.Expr(table, cols, depth-1)
		if err != nil {
			return "", err
		}
		right, err := g.Expr(table, cols, depth-1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	}
}

func (g *Generator) constantLeaf(cols []schema.Column) (string, error) {
	typ := util.Pick(g.Rand, cols).Type
	roll := g.Rand.Intn(100)
	switch {
	case roll < SingleConstantProb:
		c, err := g.SingleConstant(typ, "")
		if err != nil {
			return "", err
		}
		return c.String(), nil
	case roll < SingleConstantProb+ExprConstantProb:
		c, err := g.ExprConstant(typ, "")
		if err != nil {
			return "", err
		}
		return c.String(), nil
	default:
		return "NULL", nil
	}
}

// SingleConstant draws one literal of originType.
func (g *Generator) SingleConstant(originType, destType string) (Constant, error) {
	v, err := g.Literal(originType)
	if err != nil {
		return Constant{}, err
	}
	return Constant{Value: v, OriginType: originType, DestType: destType}, nil
}

// ExprConstant draws a parenthesized arithmetic or bitwise expression over
// literals of originType. Inner literals never carry a cast.
func (g *Generator) ExprConstant(originType, destType string) (Constant, error) {
	op := util.Pick(g.Rand, constantExprOps)
	n := util.RandIntRange(g.Rand, 1, ExprConstantArgsMax)
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c, err := g.SingleConstant(originType, "")
		if err != nil {
			return Constant{}, err
		}
		args = append(args, c.String())
	}
	return Constant{
		Value:      "(" + strings.Join(args, " "+op+" ") + ")",
		OriginType: originType,
		DestType:   destType,
	}, nil
}
