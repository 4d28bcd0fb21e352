// Package datasource opens and introspects the relational store that
// questions are asked against: a local read-only sqlite file or a remote
// MySQL/Postgres server.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

var (
	ErrInvalidConfiguration = errors.New("invalid data source configuration")
	ErrUnreachable          = errors.New("data source unreachable")
	ErrDatabaseNotFound     = errors.New("database file not found")
)

type LocalConfig struct {
	Path string
}

type RemoteConfig struct {
	Driver   Dialect
	Host     string
	User     string
	Password string
	Database string
}

// Config is a tagged choice: exactly one of Local or Remote is read,
// according to Kind.
type Config struct {
	Kind   Kind
	Local  LocalConfig
	Remote RemoteConfig
}

func Local(path string) Config {
	return Config{Kind: KindLocal, Local: LocalConfig{Path: path}}
}

func Remote(driver Dialect, host, user, password, database string) Config {
	return Config{Kind: KindRemote, Remote: RemoteConfig{
		Driver:   driver,
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
	}}
}

// ConfigurationError reports why a Config was rejected. It is returned before
// any connection attempt is made.
type ConfigurationError struct {
	Kind    Kind
	Missing []string
	Msg     string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnreachableError wraps a failed open or ping of a valid configuration.
type UnreachableError struct {
	Target string
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Target, e.Err)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// Normalized trims every field and resolves defaults. It does not validate.
func (c Config) Normalized() Config {
	c.Kind = Kind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	if c.Kind == "" {
		c.Kind = KindLocal
	}
	c.Local.Path = strings.TrimSpace(c.Local.Path)
	c.Remote.Driver = Dialect(strings.ToLower(strings.TrimSpace(string(c.Remote.Driver))))
	if c.Remote.Driver == "" {
		c.Remote.Driver = DialectMySQL
	}
	c.Remote.Host = strings.TrimSpace(c.Remote.Host)
	c.Remote.User = strings.TrimSpace(c.Remote.User)
	c.Remote.Database = strings.TrimSpace(c.Remote.Database)
	return c
}

// Validate checks the configuration without connecting. A local path must
// name an existing regular file; a remote configuration needs host, user,
// password and database all set.
func (c Config) Validate() error {
	c = c.Normalized()
	switch c.Kind {
	case KindLocal:
		if c.Local.Path == "" {
			return &ConfigurationError{Kind: KindLocal, Missing: []string{"path"}, Msg: "Please provide the database file path."}
		}
		abs, err := filepath.Abs(c.Local.Path)
		if err != nil {
			return &ConfigurationError{Kind: KindLocal, Msg: fmt.Sprintf("Invalid database path %q: %v", c.Local.Path, err), Err: err}
		}
		info, err := os.Stat(abs)
		if err != nil {
			return &ConfigurationError{Kind: KindLocal, Msg: fmt.Sprintf("Database file not found: %s", abs), Err: ErrDatabaseNotFound}
		}
		if info.IsDir() {
			return &ConfigurationError{Kind: KindLocal, Msg: fmt.Sprintf("Database path is a directory: %s", abs), Err: ErrDatabaseNotFound}
		}
		return nil
	case KindRemote:
		var missing []string
		if c.Remote.Host == "" {
			missing = append(missing, "host")
		}
		if c.Remote.User == "" {
			missing = append(missing, "user")
		}
		if c.Remote.Password == "" {
			missing = append(missing, "password")
		}
		if c.Remote.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return &ConfigurationError{
				Kind:    KindRemote,
				Missing: missing,
				Msg:     fmt.Sprintf("Please provide all %s connection details (missing: %s).", c.Remote.Driver.DisplayName(), strings.Join(missing, ", ")),
			}
		}
		if !c.Remote.Driver.Remote() {
			return &ConfigurationError{Kind: KindRemote, Msg: fmt.Sprintf("Unsupported remote driver %q (use mysql or postgres).", c.Remote.Driver)}
		}
		return nil
	default:
		return &ConfigurationError{Kind: c.Kind, Msg: fmt.Sprintf("Unknown data source %q (use local or remote).", c.Kind)}
	}
}

// Dialect reports the SQL dialect a valid configuration will speak.
func (c Config) Dialect() Dialect {
	c = c.Normalized()
	if c.Kind == KindRemote {
		return c.Remote.Driver
	}
	return DialectSQLite
}

// Describe returns a short, password-free label for status lines.
func (c Config) Describe() string {
	c = c.Normalized()
	if c.Kind == KindRemote {
		return fmt.Sprintf("%s://%s@%s/%s", c.Remote.Driver, c.Remote.User, c.Remote.Host, c.Remote.Database)
	}
	return "sqlite:" + filepath.Base(c.Local.Path)
}
