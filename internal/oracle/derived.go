package oracle

import (
	"context"
	"fmt"
	"strings"

	"derivefuzz/internal/db"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/result"
	"derivefuzz/internal/schema"

	"github.com/pkg/errors"
)

// Derived table construction failures. Both abandon the iteration.
var (
	ErrDerivedFailed = errors.New("failed to create derived table")
	ErrNoCatalogRow  = errors.New("failed to get data type")
)

// Derived records the statements that built the derived table.
type Derived struct {
	// Create is the statement that created t1.
	Create result.Result
	// Setup holds statements run after Create, such as the INSERT that
	// fills a table whose type came from the catalog.
	Setup []result.Result
}

// CatalogType is a column type read from the catalog. Full is the complete
// column type (with length, precision or unsigned flag) when the catalog
// reports one.
type CatalogType struct {
	Data string
	Full string
}

// DDL returns the most precise spelling for a column definition.
func (c CatalogType) DDL() string {
	if c.Full != "" {
		return c.Full
	}
	return c.Data
}

// BuildDerived materializes the test expression of shape as column c0 of
// the derived table, carrying the other columns. Aggregates are grouped by
// the other columns. SQL failures wrap ErrDerivedFailed or ErrNoCatalogRow;
// any other error is a transport failure.
func BuildDerived(ctx context.Context, conn db.Conn, shape schema.Shape) (Derived, error) {
	others := schema.Names(shape.OtherColumns())
	groupBy := ""
	if shape.Kind == schema.OpAggregate && len(others) > 0 {
		groupBy = " GROUP BY " + strings.Join(others, ", ")
	}
	switch conn.Target().DerivedStrategy() {
	case dialect.InferViaCatalog:
		return buildViaCatalog(ctx, conn, shape, groupBy)
	case dialect.CreateOrderedAs:
		sql := fmt.Sprintf("CREATE TABLE %s ORDER BY %s AS (%s)",
			schema.DerivedTable, schema.DerivedColumn, derivedSelect(shape, others, groupBy))
		return createAs(ctx, conn, sql)
	default:
		sql := fmt.Sprintf("CREATE TABLE %s AS (%s)", schema.DerivedTable, derivedSelect(shape, others, groupBy))
		return createAs(ctx, conn, sql)
	}
}

func derivedSelect(shape schema.Shape, others []string, groupBy string) string {
	items := []string{fmt.Sprintf("(%s) AS %s", shape.Expr, schema.DerivedColumn)}
	for _, name := range others {
		items = append(items, name+" AS "+name)
	}
	return fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(items, ", "), schema.OriginalTable, groupBy)
}

func createAs(ctx context.Context, conn db.Conn, sql string) (Derived, error) {
	res, err := conn.Execute(ctx, sql)
	if err != nil {
		return Derived{}, err
	}
	out := Derived{Create: res}
	if res.IsError() {
		return out, errors.Wrapf(ErrDerivedFailed, "%s, sql: %s", res.ErrorText(), res.SQL)
	}
	return out, nil
}

// buildViaCatalog learns the expression type from a temporary view, then
// creates t1 with explicit column types and fills it.
func buildViaCatalog(ctx context.Context, conn db.Conn, shape schema.Shape, groupBy string) (Derived, error) {
	view := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS (SELECT (%s) AS %s FROM %s%s)",
		schema.DerivedTable, shape.Expr, schema.DerivedColumn, schema.OriginalTable, groupBy)
	res, err := conn.Execute(ctx, view)
	if err != nil {
		return Derived{}, err
	}
	if res.IsError() {
		return Derived{Create: res}, errors.Wrapf(ErrDerivedFailed, "%s, sql: %s", res.ErrorText(), res.SQL)
	}
	typ, err := LookupType(ctx, conn, schema.DerivedTable, schema.DerivedColumn)
	if errors.Is(err, ErrNoCatalogRow) {
		return Derived{Create: res}, errors.Wrap(ErrDerivedFailed, err.Error())
	}
	if err != nil {
		return Derived{}, err
	}
	if _, err := conn.Execute(ctx, "DROP VIEW "+schema.DerivedTable); err != nil {
		return Derived{}, err
	}

	defs := []string{schema.DerivedColumn + " " + typ.DDL()}
	for _, col := range shape.OtherColumns() {
		defs = append(defs, col.Name+" "+col.Type)
	}
	create, err := conn.Execute(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", schema.DerivedTable, strings.Join(defs, ", ")))
	if err != nil {
		return Derived{}, err
	}
	out := Derived{Create: create}
	if create.IsError() {
		return out, errors.Wrapf(ErrDerivedFailed, "%s, sql: %s", create.ErrorText(), create.SQL)
	}

	items := []string{"(" + shape.Expr + ")"}
	items = append(items, schema.Names(shape.OtherColumns())...)
	insert, err := conn.Execute(ctx, fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s%s",
		schema.DerivedTable, strings.Join(items, ", "), schema.OriginalTable, groupBy))
	if err != nil {
		return out, err
	}
	out.Setup = append(out.Setup, insert)
	if insert.IsError() {
		return out, errors.Wrapf(ErrDerivedFailed, "failed to insert data into %s: %s, sql: %s",
			schema.DerivedTable, insert.ErrorText(), insert.SQL)
	}
	return out, nil
}

// LookupType reads the type of table.column from the target's catalog.
func LookupType(ctx context.Context, conn db.Conn, table, column string) (CatalogType, error) {
	sql := catalogSQL(conn.Target(), conn.Database(), table, column)
	res, err := conn.Execute(ctx, sql)
	if err != nil {
		return CatalogType{}, err
	}
	if res.IsError() || len(res.Cells) == 0 || len(res.Cells[0]) == 0 {
		return CatalogType{}, errors.Wrapf(ErrNoCatalogRow, "%s in %s: %s, sql: %s", column, table, res.ErrorText(), sql)
	}
	row := res.Cells[0]
	typ := CatalogType{Data: row[0]}
	if len(row) > 1 && row[1] != result.NullText {
		typ.Full = row[1]
	}
	return typ, nil
}

func catalogSQL(target dialect.Target, database, table, column string) string {
	switch target.CatalogStyle() {
	case dialect.CatalogMonetDB:
		return fmt.Sprintf("SELECT c.type FROM sys.columns c "+
			"JOIN sys.tables t ON c.table_id = t.id "+
			"JOIN sys.schemas s ON t.schema_id = s.id "+
			"WHERE s.name = '%s' AND t.name = '%s' AND c.name = '%s'", database, table, column)
	case dialect.CatalogDuckDB:
		return fmt.Sprintf("SELECT data_type FROM information_schema.columns "+
			"WHERE table_schema = '%s' AND table_name = '%s' AND column_name = '%s'", database, table, column)
	case dialect.CatalogDameng:
		return fmt.Sprintf("SELECT C.TYPE$ FROM SYS.SYSCOLUMNS C "+
			"JOIN SYS.SYSOBJECTS T ON C.ID = T.ID "+
			"JOIN SYS.SYSOBJECTS S ON T.SCHID = S.ID "+
			"WHERE C.NAME = '%s' AND T.NAME = '%s' AND S.NAME = '%s'",
			strings.ToUpper(column), strings.ToUpper(table), strings.ToUpper(database))
	}
	cols := "DATA_TYPE"
	if target.CatalogColumnType() {
		cols += ", COLUMN_TYPE"
	}
	return fmt.Sprintf("SELECT %s FROM INFORMATION_SCHEMA.COLUMNS "+
		"WHERE TABLE_SCHEMA = '%s' AND TABLE_NAME = '%s' AND COLUMN_NAME = '%s'", cols, database, table, column)
}
