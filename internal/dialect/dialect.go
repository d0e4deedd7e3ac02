// Package dialect enumerates the supported engines and the SQL capabilities
// the oracle loop needs from each of them.
package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// Target identifies one engine under test.
type Target int

// Target values.
const (
	MySQL Target = iota
	MariaDB
	TiDB
	ClickHouse
	Postgres
	RisingWave
	DuckDB
	MonetDB
	Dameng
)

// DerivedStrategy selects how the derived table is materialized.
type DerivedStrategy int

// DerivedStrategy values.
const (
	// CreateAs issues CREATE TABLE ... AS (SELECT ...).
	CreateAs DerivedStrategy = iota
	// CreateOrderedAs issues CREATE TABLE ... ORDER BY c0 AS (SELECT ...).
	CreateOrderedAs
	// InferViaCatalog creates a view, reads the projected type from the
	// catalog, then creates and fills the table explicitly.
	InferViaCatalog
)

// CatalogStyle selects the metadata query used to look up a column type.
type CatalogStyle int

// CatalogStyle values.
const (
	CatalogInformationSchema CatalogStyle = iota
	CatalogMonetDB
	CatalogDuckDB
	CatalogDameng
)

// SpatialStyle selects how geometry literals are spelled.
type SpatialStyle int

// SpatialStyle values.
const (
	// SpatialNone means geometry literals are not supported.
	SpatialNone SpatialStyle = iota
	// SpatialWKTFunc wraps WKT text in ST_GeomFromText('...').
	SpatialWKTFunc
	// SpatialWKT emits bare WKT constructors such as POINT(1 2).
	SpatialWKT
	// SpatialTuple emits coordinate tuples such as (1, 2) and [(1, 2), (3, 4)].
	SpatialTuple
)

// Isolation selects the unit that is dropped and recreated per iteration.
type Isolation int

// Isolation values.
const (
	IsolateDatabase Isolation = iota
	IsolateSchema
)

// Family groups targets by the Go driver used to reach them.
type Family int

// Family values.
const (
	// FamilyMySQL uses github.com/go-sql-driver/mysql.
	FamilyMySQL Family = iota
	// FamilyPostgres uses github.com/lib/pq.
	FamilyPostgres
	// FamilyPgx uses github.com/jackc/pgx/v5 in simple-protocol mode.
	FamilyPgx
	// FamilyExternal uses a database/sql driver registered by the binary.
	FamilyExternal
)

type profile struct {
	name           string
	family         Family
	driver         string
	defaultPort    int
	derived        DerivedStrategy
	catalog        CatalogStyle
	spatial        SpatialStyle
	isolation      Isolation
	orderedCreate  bool
	catalogColType bool
	mysqlSyntax    bool
	useSchema      string
}

var profiles = map[Target]profile{
	MySQL: {
		name: "mysql", family: FamilyMySQL, driver: "mysql", defaultPort: 3306,
		derived: CreateAs, catalog: CatalogInformationSchema, spatial: SpatialWKTFunc,
		isolation: IsolateDatabase, catalogColType: true, mysqlSyntax: true,
	},
	MariaDB: {
		name: "mariadb", family: FamilyMySQL, driver: "mysql", defaultPort: 3306,
		derived: CreateAs, catalog: CatalogInformationSchema, spatial: SpatialWKTFunc,
		isolation: IsolateDatabase, catalogColType: true, mysqlSyntax: true,
	},
	TiDB: {
		name: "tidb", family: FamilyMySQL, driver: "mysql", defaultPort: 4000,
		derived: InferViaCatalog, catalog: CatalogInformationSchema, spatial: SpatialNone,
		isolation: IsolateDatabase, catalogColType: true, mysqlSyntax: true,
	},
	ClickHouse: {
		name: "clickhouse", family: FamilyMySQL, driver: "mysql", defaultPort: 9004,
		derived: CreateOrderedAs, catalog: CatalogInformationSchema, spatial: SpatialTuple,
		isolation: IsolateDatabase, orderedCreate: true,
	},
	Postgres: {
		name: "postgres", family: FamilyPostgres, driver: "postgres", defaultPort: 5432,
		derived: CreateAs, catalog: CatalogInformationSchema, spatial: SpatialWKTFunc,
		isolation: IsolateSchema, useSchema: "SET search_path TO %s",
	},
	RisingWave: {
		name: "risingwave", family: FamilyPgx, driver: "pgx", defaultPort: 4566,
		derived: CreateAs, catalog: CatalogInformationSchema, spatial: SpatialNone,
		isolation: IsolateSchema, useSchema: "SET search_path TO %s",
	},
	DuckDB: {
		name: "duckdb", family: FamilyExternal, driver: "duckdb",
		derived: CreateAs, catalog: CatalogDuckDB, spatial: SpatialWKT,
		isolation: IsolateSchema, useSchema: "SET schema = '%s'",
	},
	MonetDB: {
		name: "monetdb", family: FamilyExternal, driver: "monetdb", defaultPort: 50000,
		derived: CreateAs, catalog: CatalogMonetDB, spatial: SpatialWKT,
		isolation: IsolateSchema, useSchema: "SET SCHEMA %s",
	},
	Dameng: {
		name: "dameng", family: FamilyExternal, driver: "dm", defaultPort: 5236,
		derived: CreateAs, catalog: CatalogDameng, spatial: SpatialWKT,
		isolation: IsolateSchema, useSchema: "SET SCHEMA %s",
	},
}

// Parse resolves a target name, case-insensitively.
func Parse(name string) (Target, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, p := range profiles {
		if p.name == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown target %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// All returns every target in declaration order.
func All() []Target {
	out := make([]Target, 0, len(profiles))
	for t := range profiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns every target name in declaration order.
func Names() []string {
	targets := All()
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.String())
	}
	return out
}

func (t Target) String() string {
	if p, ok := profiles[t]; ok {
		return p.name
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Family reports which Go driver reaches the target.
func (t Target) Family() Family { return profiles[t].family }

// DriverName is the database/sql driver name used for the target.
func (t Target) DriverName() string { return profiles[t].driver }

// DefaultPort is used when the config leaves the port unset.
func (t Target) DefaultPort() int { return profiles[t].defaultPort }

// DerivedStrategy reports how the derived table is built.
func (t Target) DerivedStrategy() DerivedStrategy { return profiles[t].derived }

// CatalogStyle reports which catalog template answers column type lookups.
func (t Target) CatalogStyle() CatalogStyle { return profiles[t].catalog }

// SpatialStyle reports how geometry literals are spelled.
func (t Target) SpatialStyle() SpatialStyle { return profiles[t].spatial }

// Isolation reports whether iterations are isolated by database or schema.
func (t Target) Isolation() Isolation { return profiles[t].isolation }

// OrderedCreate reports whether CREATE TABLE needs an ORDER BY key.
func (t Target) OrderedCreate() bool { return profiles[t].orderedCreate }

// CatalogColumnType reports whether information_schema exposes COLUMN_TYPE
// with full type parameters.
func (t Target) CatalogColumnType() bool { return profiles[t].catalogColType }

// MySQLSyntax reports whether statements follow the MySQL grammar closely
// enough to be checked with the TiDB parser.
func (t Target) MySQLSyntax() bool { return profiles[t].mysqlSyntax }

// UseSchemaSQL returns the statement that makes schema the session default.
// It is empty for database-isolated targets.
func (t Target) UseSchemaSQL(schema string) string {
	tmpl := profiles[t].useSchema
	if tmpl == "" {
		return ""
	}
	return fmt.Sprintf(tmpl, schema)
}

// DropIsolationSQL drops the per-iteration database or schema.
func (t Target) DropIsolationSQL(name string) string {
	if t.Isolation() == IsolateSchema {
		return fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", name)
	}
	return fmt.Sprintf("DROP DATABASE IF EXISTS %s", name)
}

// CreateIsolationSQL creates the per-iteration database or schema.
func (t Target) CreateIsolationSQL(name string) string {
	if t.Isolation() == IsolateSchema {
		return fmt.Sprintf("CREATE SCHEMA %s", name)
	}
	return fmt.Sprintf("CREATE DATABASE %s", name)
}
