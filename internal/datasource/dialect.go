package datasource

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const connectTimeout = 5 * time.Second

func (d Dialect) Remote() bool {
	return d == DialectMySQL || d == DialectPostgres
}

func (d Dialect) DisplayName() string {
	switch d {
	case DialectSQLite:
		return "SQLite"
	case DialectMySQL:
		return "MySQL"
	case DialectPostgres:
		return "Postgres"
	default:
		return string(d)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectPostgres:
		return "pgx"
	default:
		return "sqlite3"
	}
}

func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// dsn builds the driver connection string for a validated configuration.
func dsn(c Config) (string, error) {
	c = c.Normalized()
	switch c.Dialect() {
	case DialectSQLite:
		abs, err := filepath.Abs(c.Local.Path)
		if err != nil {
			return "", err
		}
		return "file:" + abs + "?mode=ro", nil
	case DialectMySQL:
		mc := mysql.NewConfig()
		mc.User = c.Remote.User
		mc.Passwd = c.Remote.Password
		mc.Net = "tcp"
		mc.Addr = withDefaultPort(c.Remote.Host, "3306")
		mc.DBName = c.Remote.Database
		mc.ParseTime = true
		mc.Timeout = connectTimeout
		mc.Params = map[string]string{"transaction_read_only": "1"}
		return mc.FormatDSN(), nil
	case DialectPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Remote.User, c.Remote.Password),
			Host:     withDefaultPort(c.Remote.Host, "5432"),
			Path:     "/" + c.Remote.Database,
			RawQuery: url.Values{"default_transaction_read_only": {"on"}, "connect_timeout": {"5"}}.Encode(),
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", c.Dialect())
	}
}

func withDefaultPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}
