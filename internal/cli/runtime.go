package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/config"
	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/providers"
	"github.com/yubzen/sqlchat/internal/redact"
	"github.com/yubzen/sqlchat/internal/session"
	"github.com/yubzen/sqlchat/internal/state"
)

const startupTimeout = 20 * time.Second

// MissingCredentialError halts startup before any data source or model work.
type MissingCredentialError struct {
	Kind providers.Kind
}

func (e *MissingCredentialError) Error() string {
	name := e.Kind.DisplayName()
	return fmt.Sprintf("%s API Key is required to proceed.\nPlease add the %s API key: sqlchat auth set %s", name, name, e.Kind)
}

func (e *MissingCredentialError) Unwrap() error {
	return session.ErrMissingCredential
}

// resolveAPIKey finds the provider key, mapping a missing key to
// *MissingCredentialError.
func resolveAPIKey(cfg *config.Config, flagKey string) (providers.Kind, string, error) {
	kind, err := providers.ParseKind(cfg.Provider.Name)
	if err != nil {
		return "", "", err
	}
	key, _, err := providers.ResolveCredential(kind, flagKey, os.Getenv)
	if errors.Is(err, providers.ErrCredentialNotFound) {
		return kind, "", &MissingCredentialError{Kind: kind}
	}
	if err != nil {
		return kind, "", fmt.Errorf("load %s API key: %w", kind.DisplayName(), err)
	}
	return kind, key, nil
}

// historyRecorder stores each submitted question against the state session.
type historyRecorder struct {
	db        *state.DB
	sessionID string
}

func (r historyRecorder) RecordQuestion(ctx context.Context, question string) error {
	return r.db.RecordQuestion(ctx, r.sessionID, question)
}

type runtimeOptions struct {
	// Record persists questions through the session. The TUI records every
	// input itself and leaves this off.
	Record bool
	Logger *slog.Logger
}

// runtime is everything a question needs: the config, the swappable provider,
// the state database and a session with its data source already open.
type runtime struct {
	cfg      *config.Config
	kind     providers.Kind
	provider *providers.Switch
	db       *state.DB
	record   *state.Session
	session  *session.Session
	log      *slog.Logger
}

// bootstrap checks the credential first, then validates and opens the data
// source, then opens the state database. Each failure is fatal to the caller.
func bootstrap(ctx context.Context, cfg *config.Config, flags *Flags, opts runtimeOptions) (*runtime, error) {
	log := opts.Logger
	if log == nil {
		log = observability.Discard()
	}

	kind, key, err := resolveAPIKey(cfg, flags.APIKey)
	if err != nil {
		return nil, err
	}

	redact.Register(key)

	dsCfg := dataSourceConfig(cfg)
	if err := dsCfg.Validate(); err != nil {
		return nil, err
	}

	p, err := providers.New(providers.Config{Kind: kind, APIKey: key, BaseURL: cfg.Provider.BaseURL})
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, kind: kind, provider: providers.NewSwitch(p), log: log}

	rt.db, err = state.ConnectContext(ctx, cfg.State.Path, log)
	if err != nil {
		return nil, err
	}
	rt.record, err = rt.db.CreateSession(ctx, dsCfg.Describe(), string(kind), cfg.Provider.Model)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var recorder session.Recorder
	if opts.Record {
		recorder = historyRecorder{db: rt.db, sessionID: rt.record.ID}
	}
	rt.session, err = session.New(session.Options{
		Credential:    key,
		Provider:      string(kind),
		Model:         cfg.Provider.Model,
		NewCapability: rt.newCapability,
		HandleOptions: datasource.HandleOptions{Validity: cfg.DataSource.Validity.Duration, Logger: log},
		Watch:         cfg.DataSource.Watch,
		PrimaryTable:  cfg.DataSource.PrimaryTable,
		Columns:       cfg.DataSource.Columns,
		Recorder:      recorder,
		Logger:        log,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := rt.session.ConfigureDataSource(openCtx, dsCfg); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *runtime) newCapability(h *datasource.Handle) agent.Capability {
	a := agent.NewSQLAgent(r.provider, r.cfg.Provider.Model, h, r.log)
	if r.cfg.Provider.MaxIterations > 0 {
		a.MaxIterations = r.cfg.Provider.MaxIterations
	}
	if r.cfg.Provider.TopK > 0 {
		a.TopK = r.cfg.Provider.TopK
	}
	a.MaxTokens = r.cfg.Provider.MaxTokens
	return a
}

// connectProvider validates and activates a replacement key, then stores it.
func (r *runtime) connectProvider(ctx context.Context, apiKey string) error {
	p, err := providers.New(providers.Config{Kind: r.kind, APIKey: apiKey, BaseURL: r.cfg.Provider.BaseURL})
	if err != nil {
		return err
	}
	if err := p.Ping(ctx); err != nil {
		return err
	}
	redact.Register(apiKey)
	if err := providers.StoreCredential(string(r.kind), apiKey); err != nil {
		r.log.Warn("api key accepted but not stored", "provider", r.kind, "error", err)
	}
	r.provider.Set(p)
	r.log.Info("provider key replaced", "provider", r.kind)
	return nil
}

func (r *runtime) sourceChanged(ctx context.Context, cfg datasource.Config) {
	if err := r.db.UpdateSessionSource(ctx, r.record.ID, cfg.Describe()); err != nil {
		r.log.Warn("record data source change", "error", err)
	}
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.session != nil {
		_ = r.session.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
}

// stderrLogger is the logger for commands that do not own the terminal.
func stderrLogger(cfg *config.Config, w io.Writer, color bool) *slog.Logger {
	return observability.NewLogger(w, observability.LoggerOptions{Verbose: cfg.Log.Verbose, Color: color})
}
