package generator

import (
	"fmt"
	"strings"

	"derivefuzz/internal/schema"
	"derivefuzz/internal/util"
)

// ShapeColumnType turns a seed type into a concrete column type: ENUM gets
// a member list and bare char or binary types get a random length.
func (g *Generator) ShapeColumnType(typ string) string {
	t := strings.ToUpper(strings.TrimSpace(typ))
	if strings.HasPrefix(t, "ENUM") {
		n := util.RandIntRange(g.Rand, ShapeEnumValuesMin, ShapeEnumValuesMax)
		values := make([]string, n)
		for i := range values {
			values[i] = fmt.Sprintf("'val%d'", i)
		}
		return "ENUM(" + strings.Join(values, ",") + ")"
	}
	if strings.Contains(t, "(") {
		return typ
	}
	if strings.HasPrefix(t, "CHAR") || strings.HasPrefix(t, "VAR") || t == "BINARY" {
		return fmt.Sprintf("%s(%d)", typ, util.RandIntRange(g.Rand, ShapeLengthMin, ShapeLengthMax))
	}
	return typ
}

// CreateTableSQL renders the DDL for table. Ordered-create targets get an
// ORDER BY on the first column.
func (g *Generator) CreateTableSQL(table schema.Table) string {
	defs := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		defs = append(defs, col.Name+" "+col.Type)
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", table.Name, strings.Join(defs, ", "))
	if g.Target.OrderedCreate() && len(table.Columns) > 0 {
		sql += " ORDER BY " + table.Columns[0].Name
	}
	return sql
}

// DropTableSQL drops name if it exists.
func DropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + name
}

// InsertSQL renders a single-row INSERT with one random literal per column.
func (g *Generator) InsertSQL(table schema.Table) (string, error) {
	values := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		v, err := g.Literal(col.Type)
		if err != nil {
			return "", err
		}
		values = append(values, v)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.ColumnNames(), ", "), strings.Join(values, ", ")), nil
}
