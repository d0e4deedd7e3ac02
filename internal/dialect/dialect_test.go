package dialect

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for _, target := range All() {
		got, err := Parse(target.String())
		if err != nil {
			t.Fatalf("parse %s: %v", target, err)
		}
		if got != target {
			t.Fatalf("parse %s returned %s", target, got)
		}
	}
	if got, err := Parse(" TiDB "); err != nil || got != TiDB {
		t.Fatalf("case-insensitive parse failed: %v %v", got, err)
	}
	if _, err := Parse("sqlite"); err == nil {
		t.Fatalf("expected error for unknown target")
	}
}

func TestCapabilities(t *testing.T) {
	if ClickHouse.DerivedStrategy() != CreateOrderedAs || !ClickHouse.OrderedCreate() {
		t.Fatalf("clickhouse should use ordered create")
	}
	if TiDB.DerivedStrategy() != InferViaCatalog {
		t.Fatalf("tidb should infer the derived type via catalog")
	}
	if MySQL.DerivedStrategy() != CreateAs || Postgres.DerivedStrategy() != CreateAs {
		t.Fatalf("mysql and postgres should use plain create-as")
	}
	styles := map[Target]CatalogStyle{
		MySQL:   CatalogInformationSchema,
		MonetDB: CatalogMonetDB,
		DuckDB:  CatalogDuckDB,
		Dameng:  CatalogDameng,
	}
	for target, want := range styles {
		if got := target.CatalogStyle(); got != want {
			t.Fatalf("%s catalog style=%d, want %d", target, got, want)
		}
	}
	for _, target := range []Target{RisingWave, TiDB} {
		if target.SpatialStyle() != SpatialNone {
			t.Fatalf("%s should not support spatial literals", target)
		}
	}
}

func TestIsolationSQL(t *testing.T) {
	if got := MySQL.DropIsolationSQL("database3"); got != "DROP DATABASE IF EXISTS database3" {
		t.Fatalf("unexpected drop sql: %s", got)
	}
	if got := Dameng.DropIsolationSQL("database3"); got != "DROP SCHEMA IF EXISTS database3 CASCADE" {
		t.Fatalf("unexpected drop sql: %s", got)
	}
	if got := Postgres.CreateIsolationSQL("database3"); got != "CREATE SCHEMA database3" {
		t.Fatalf("unexpected create sql: %s", got)
	}
	if got := MySQL.UseSchemaSQL("database3"); got != "" {
		t.Fatalf("database-isolated targets should not switch schema: %s", got)
	}
	if got := Postgres.UseSchemaSQL("database3"); got != "SET search_path TO database3" {
		t.Fatalf("unexpected use-schema sql: %s", got)
	}
}
