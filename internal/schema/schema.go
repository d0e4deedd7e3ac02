// Package schema defines the table and operator shapes drawn per iteration.
package schema

import (
	"fmt"
	"strings"
)

// Fixed names shared by both sides of every query pair.
const (
	OriginalTable = "t0"
	DerivedTable  = "t1"
	DerivedColumn = "c0"
)

// OpKind enumerates operator categories; each maps to one oracle.
type OpKind int

// OpKind values.
const (
	OpAggregate OpKind = iota
	OpFunction
	OpPredicate
)

func (k OpKind) String() string {
	switch k {
	case OpAggregate:
		return "aggregate"
	case OpFunction:
		return "function"
	case OpPredicate:
		return "predicate"
	default:
		return fmt.Sprintf("opkind(%d)", int(k))
	}
}

// Column describes a table column. Type is a free-form type descriptor
// such as VARCHAR(10) or MAP(INT, TEXT).
type Column struct {
	Name string
	Type string
}

// Table describes a database table.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	return Names(t.Columns)
}

// Names returns the names of cols.
func Names(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

// Types returns the type descriptors of cols.
func Types(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Type)
	}
	return out
}

// ColumnName returns the positional synthetic name c{idx}.
func ColumnName(idx int) string {
	return fmt.Sprintf("c%d", idx)
}

// Shape is one draw of the SelectShape state: the operator under test, the
// original table layout and the test expression over its first TestCount
// columns.
type Shape struct {
	Kind      OpKind
	Op        string
	Table     Table
	TestCount int
	Expr      string
}

// TestColumns are the columns fed to the operator.
func (s Shape) TestColumns() []Column {
	return s.Table.Columns[:s.TestCount]
}

// OtherColumns are carried through the derived table unchanged.
func (s Shape) OtherColumns() []Column {
	return s.Table.Columns[s.TestCount:]
}

// TypeSummary renders the column types for progress logs.
func (s Shape) TypeSummary() string {
	return "[" + strings.Join(Types(s.Table.Columns), ", ") + "]"
}
