package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultProvider      = "groq"
	DefaultModel         = "llama3-8b-8192"
	DefaultLocalPath     = "./csv_to_sql/reviews.db"
	DefaultPrimaryTable  = "reviews"
	DefaultValidity      = 2 * time.Hour
	DefaultMaxIterations = 10
	DefaultTopK          = 10
)

// Duration lets TOML carry values like "2h" or "90m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	DataSource struct {
		Kind         string   `toml:"kind"`
		PrimaryTable string   `toml:"primary_table"`
		Columns      []string `toml:"columns"`
		Validity     Duration `toml:"validity"`
		Watch        bool     `toml:"watch"`
		Local        struct {
			Path string `toml:"path"`
		} `toml:"local"`
		Remote struct {
			Driver   string `toml:"driver"`
			Host     string `toml:"host"`
			User     string `toml:"user"`
			Password string `toml:"password,omitempty"`
			Database string `toml:"database"`
		} `toml:"remote"`
	} `toml:"datasource"`
	Provider struct {
		Name          string `toml:"name"`
		Model         string `toml:"model"`
		// BaseURL empty selects the provider's default endpoint.
		BaseURL       string `toml:"base_url"`
		MaxIterations int    `toml:"max_iterations"`
		TopK          int    `toml:"top_k"`
		MaxTokens     int    `toml:"max_tokens"`
	} `toml:"provider"`
	Log struct {
		Verbose bool   `toml:"verbose"`
		File    string `toml:"file"`
	} `toml:"log"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
	State struct {
		Path string `toml:"path"`
	} `toml:"state"`
}

var userHomeDir = os.UserHomeDir

func configDir() string {
	home, _ := userHomeDir()
	return filepath.Join(home, ".config", "sqlchat")
}

func GetConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func Defaults() *Config {
	var cfg Config
	cfg.DataSource.Kind = "local"
	cfg.DataSource.PrimaryTable = DefaultPrimaryTable
	cfg.DataSource.Validity = Duration{DefaultValidity}
	cfg.DataSource.Watch = true
	cfg.DataSource.Local.Path = DefaultLocalPath
	cfg.DataSource.Remote.Driver = "mysql"
	cfg.Provider.Name = DefaultProvider
	cfg.Provider.Model = DefaultModel
	cfg.Provider.MaxIterations = DefaultMaxIterations
	cfg.Provider.TopK = DefaultTopK
	cfg.Provider.MaxTokens = 2048
	cfg.Log.File = filepath.Join(configDir(), "sqlchat.log")
	cfg.State.Path = filepath.Join(configDir(), "sqlchat.db")
	return &cfg
}

// Load reads the config file over the defaults, then applies environment
// overrides. A .env file in the working directory is loaded first; variables
// already set in the process environment win.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.DataSource.Kind, "SQLCHAT_SOURCE")
	set(&c.DataSource.Local.Path, "SQLCHAT_DB_PATH")
	set(&c.DataSource.Remote.Driver, "SQLCHAT_DRIVER")
	set(&c.DataSource.Remote.Host, "SQLCHAT_DB_HOST", "MYSQL_HOST")
	set(&c.DataSource.Remote.User, "SQLCHAT_DB_USER", "MYSQL_USER")
	set(&c.DataSource.Remote.Password, "SQLCHAT_DB_PASSWORD", "MYSQL_PASSWORD")
	set(&c.DataSource.Remote.Database, "SQLCHAT_DB_NAME", "MYSQL_DATABASE")
	set(&c.Provider.Name, "SQLCHAT_PROVIDER")
	set(&c.Provider.Model, "SQLCHAT_MODEL")
	set(&c.Provider.BaseURL, "SQLCHAT_BASE_URL")
	set(&c.Metrics.Addr, "SQLCHAT_METRICS_ADDR")
}

// Save writes the config file. The remote password is never persisted.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out := *c
	out.DataSource.Remote.Password = ""
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(out)
}
