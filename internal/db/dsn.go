package db

import (
	"database/sql"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	"derivefuzz/internal/config"
	"derivefuzz/internal/dialect"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const dialTimeout = 5 * time.Second

func openPool(target dialect.Target, tc config.TargetConfig, database string) (*sql.DB, error) {
	var (
		pool *sql.DB
		err  error
	)
	switch target.Family() {
	case dialect.FamilyMySQL:
		pool, err = sql.Open(target.DriverName(), MySQLDSN(target, tc, database))
	case dialect.FamilyPostgres:
		var connector *pq.Connector
		connector, err = pq.NewConnector(PostgresDSN(target, tc, database))
		if err == nil {
			pool = sql.OpenDB(connector)
		}
	case dialect.FamilyPgx:
		var cfg *pgx.ConnConfig
		cfg, err = pgx.ParseConfig(PostgresDSN(target, tc, database))
		if err == nil {
			cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
			pool = stdlib.OpenDB(*cfg)
		}
	default:
		pool, err = openExternal(target, tc)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", target)
	}
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)
	return pool, nil
}

func openExternal(target dialect.Target, tc config.TargetConfig) (*sql.DB, error) {
	name := tc.Driver
	if name == "" {
		name = target.DriverName()
	}
	registered := false
	for _, d := range sql.Drivers() {
		if d == name {
			registered = true
			break
		}
	}
	if !registered {
		return nil, errors.Errorf("database/sql driver %q is not registered in this binary", name)
	}
	if tc.DSN == "" {
		return nil, errors.Errorf("target %s requires a dsn", target)
	}
	return sql.Open(name, tc.DSN)
}

// MySQLDSN builds a go-sql-driver DSN for MySQL-protocol targets.
func MySQLDSN(target dialect.Target, tc config.TargetConfig, database string) string {
	mc := mysql.NewConfig()
	mc.User = tc.User
	mc.Passwd = tc.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(target, tc)
	mc.DBName = database
	mc.Timeout = dialTimeout
	mc.AllowNativePasswords = true
	if len(tc.Params) > 0 {
		mc.Params = make(map[string]string, len(tc.Params))
		for k, v := range tc.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}

// PostgresDSN builds a postgres:// URL for PostgreSQL-protocol targets.
func PostgresDSN(target dialect.Target, tc config.TargetConfig, database string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   hostPort(target, tc),
		Path:   "/" + database,
	}
	if tc.Password != "" {
		u.User = url.UserPassword(tc.User, tc.Password)
	} else if tc.User != "" {
		u.User = url.User(tc.User)
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("connect_timeout", strconv.Itoa(int(dialTimeout/time.Second)))
	keys := make([]string, 0, len(tc.Params))
	for k := range tc.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, tc.Params[k])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func hostPort(target dialect.Target, tc config.TargetConfig) string {
	host := tc.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := tc.Port
	if port <= 0 {
		port = target.DefaultPort()
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func defaultDatabase(target dialect.Target, tc config.TargetConfig) string {
	if tc.Database != "" {
		return tc.Database
	}
	switch target {
	case dialect.Postgres:
		return "postgres"
	case dialect.RisingWave:
		return "dev"
	}
	return ""
}
