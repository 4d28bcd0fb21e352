package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/yubzen/sqlchat/internal/config"
	"github.com/yubzen/sqlchat/internal/datasource"
)

// Flags are the persistent root flags. Non-empty values override the config
// file and the environment.
type Flags struct {
	Source   string
	DBPath   string
	Driver   string
	Host     string
	User     string
	Password string
	Database string

	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	Verbose     bool
	MetricsAddr string
	ConfigPath  string
}

func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Source, "source", "", "Data source: local, remote, sqlite, mysql or postgres")
	fs.StringVar(&f.DBPath, "db", "", "Path to the local sqlite database")
	fs.StringVar(&f.Driver, "driver", "", "Remote driver: mysql or postgres")
	fs.StringVar(&f.Host, "host", "", "Remote database host[:port]")
	fs.StringVar(&f.User, "user", "", "Remote database user")
	fs.StringVar(&f.Password, "password", "", "Remote database password")
	fs.StringVar(&f.Database, "database", "", "Remote database name")
	fs.StringVar(&f.Provider, "provider", "", "LLM provider: groq, openai, openrouter or anthropic")
	fs.StringVar(&f.Model, "model", "", "Model name")
	fs.StringVar(&f.APIKey, "api-key", "", "Provider API key (otherwise env or keyring)")
	fs.StringVar(&f.BaseURL, "base-url", "", "Override the provider base URL")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Log at debug level")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&f.ConfigPath, "config", "", "Config file (default ~/.config/sqlchat/config.toml)")
}

// Apply layers the flags over cfg.
func (f *Flags) Apply(cfg *config.Config) error {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	if src := strings.ToLower(strings.TrimSpace(f.Source)); src != "" {
		switch src {
		case "local", "sqlite":
			cfg.DataSource.Kind = string(datasource.KindLocal)
		case "remote":
			cfg.DataSource.Kind = string(datasource.KindRemote)
		case "mysql", "postgres":
			cfg.DataSource.Kind = string(datasource.KindRemote)
			cfg.DataSource.Remote.Driver = src
		default:
			return fmt.Errorf("unknown --source %q (expected local, remote, sqlite, mysql or postgres)", f.Source)
		}
	}
	set(&cfg.DataSource.Local.Path, f.DBPath)
	set(&cfg.DataSource.Remote.Driver, f.Driver)
	set(&cfg.DataSource.Remote.Host, f.Host)
	set(&cfg.DataSource.Remote.User, f.User)
	set(&cfg.DataSource.Remote.Password, f.Password)
	set(&cfg.DataSource.Remote.Database, f.Database)
	set(&cfg.Provider.Name, f.Provider)
	set(&cfg.Provider.Model, f.Model)
	set(&cfg.Provider.BaseURL, f.BaseURL)
	set(&cfg.Metrics.Addr, f.MetricsAddr)
	if f.Verbose {
		cfg.Log.Verbose = true
	}
	return nil
}

// loadConfig reads the config file, then applies the flags.
func (f *Flags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(f.configPath())
	if err != nil {
		return nil, err
	}
	if err := f.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) configPath() string {
	if path := strings.TrimSpace(f.ConfigPath); path != "" {
		return path
	}
	return config.GetConfigPath()
}

// dataSourceConfig maps the [datasource] section onto a datasource.Config.
func dataSourceConfig(cfg *config.Config) datasource.Config {
	ds := cfg.DataSource
	if strings.EqualFold(strings.TrimSpace(ds.Kind), string(datasource.KindRemote)) {
		return datasource.Remote(datasource.Dialect(ds.Remote.Driver),
			ds.Remote.Host, ds.Remote.User, ds.Remote.Password, ds.Remote.Database)
	}
	return datasource.Local(ds.Local.Path)
}
