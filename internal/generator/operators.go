package generator

import (
	"fmt"
	"strings"

	"derivefuzz/internal/schema"

	"github.com/pkg/errors"
)

var infixFunctions = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {},
}

var binaryPredicates = map[string]struct{}{
	"LIKE": {}, "NOT LIKE": {}, "IS": {},
	">": {}, "<": {}, "<=": {}, ">=": {}, "<>": {},
}

// TestExpr renders the expression under test by applying op to cols.
// Predicates are arity-checked; a mismatch returns ErrArity.
func TestExpr(op string, kind schema.OpKind, cols []string) (string, error) {
	switch kind {
	case schema.OpAggregate:
		return callForm(op, cols), nil
	case schema.OpFunction:
		if _, ok := infixFunctions[op]; ok {
			return strings.Join(cols, op), nil
		}
		return callForm(op, cols), nil
	case schema.OpPredicate:
		return predicateExpr(op, cols)
	}
	return "", errors.Wrapf(ErrArity, "%s, %v", op, cols)
}

func callForm(op string, cols []string) string {
	return fmt.Sprintf("%s(%s)", op, strings.Join(cols, ","))
}

func predicateExpr(op string, cols []string) (string, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(op), " "))
	_, binary := binaryPredicates[norm]
	switch {
	case (norm == "IS NULL" || norm == "IS NOT NULL") && len(cols) == 1:
		return cols[0] + " " + op, nil
	case binary && len(cols) == 2:
		return cols[0] + " " + op + " " + cols[1], nil
	case norm == "BETWEEN" && len(cols) == 3:
		return fmt.Sprintf("%s %s %s AND %s", cols[0], op, cols[1], cols[2]), nil
	case (norm == "IN" || norm == "NOT IN") && len(cols) > 1:
		return fmt.Sprintf("%s %s (%s)", cols[0], op, strings.Join(cols[1:], ",")), nil
	}
	return "", errors.Wrapf(ErrArity, "%s, %v", op, cols)
}
