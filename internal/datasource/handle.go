package datasource

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/redact"
)

// DefaultValidity is how long an opened pool is used before it is reopened.
const DefaultValidity = 2 * time.Hour

var ErrHandleClosed = errors.New("data source handle is closed")

type HandleOptions struct {
	Validity time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger

	// Opener replaces the driver open+ping step. Tests use it to count reopens.
	Opener func(ctx context.Context, cfg Config) (*sql.DB, error)
}

// Handle owns the connection pool for one data source configuration. It is
// valid for a fixed window after opening, after which the next DB call
// reopens the pool. Invalidate forces the same on the next call. A Handle is
// safe for concurrent use; the pool itself serves concurrent reads.
type Handle struct {
	cfg      Config
	validity time.Duration
	clock    clockwork.Clock
	log      *slog.Logger
	opener   func(ctx context.Context, cfg Config) (*sql.DB, error)

	mu          sync.Mutex
	db          *sql.DB
	openedAt    time.Time
	invalidated bool
	closed      bool
}

// Open validates cfg, opens the pool and pings it. Validation failures are
// *ConfigurationError and never touch the network; connection failures are
// *UnreachableError.
func Open(ctx context.Context, cfg Config, opts HandleOptions) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handle{
		cfg:      cfg.Normalized(),
		validity: opts.Validity,
		clock:    opts.Clock,
		log:      opts.Logger,
		opener:   opts.Opener,
	}
	if h.validity <= 0 {
		h.validity = DefaultValidity
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.log == nil {
		h.log = observability.Discard()
	}
	if h.opener == nil {
		h.opener = openPool
	}

	db, err := h.opener(ctx, h.cfg)
	if err != nil {
		return nil, err
	}
	h.db = db
	h.openedAt = h.clock.Now()
	h.log.Info("data source opened", "source", h.cfg.Describe(), "valid_for", h.validity)
	return h, nil
}

func (h *Handle) Config() Config {
	return h.cfg
}

func (h *Handle) Dialect() Dialect {
	return h.cfg.Dialect()
}

// ExpiresAt is when the current pool stops being handed out.
func (h *Handle) ExpiresAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openedAt.Add(h.validity)
}

// DB returns the live pool, reopening it first if the validity window has
// passed or Invalidate was called.
func (h *Handle) DB(ctx context.Context) (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}

	reason := ""
	switch {
	case h.invalidated:
		reason = "invalidated"
	case !h.clock.Now().Before(h.openedAt.Add(h.validity)):
		reason = "expired"
	}
	if reason == "" {
		return h.db, nil
	}

	db, err := h.opener(ctx, h.cfg)
	if err != nil {
		return nil, err
	}
	old := h.db
	h.db = db
	h.openedAt = h.clock.Now()
	h.invalidated = false
	observability.HandleReopensTotal.WithLabelValues(reason).Inc()
	h.log.Info("data source reopened", "source", h.cfg.Describe(), "reason", reason)
	if old != nil {
		// Close waits for in-flight queries; do not hold the lock for it.
		go old.Close()
	}
	return db, nil
}

// Invalidate marks the pool stale. The next DB call reopens it.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = true
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

func openPool(ctx context.Context, cfg Config) (*sql.DB, error) {
	dialect := cfg.Dialect()
	connStr, err := dsn(cfg)
	if err != nil {
		return nil, &ConfigurationError{Kind: cfg.Kind, Msg: err.Error(), Err: err}
	}
	db, err := sql.Open(dialect.DriverName(), connStr)
	if err != nil {
		return nil, &UnreachableError{Target: cfg.Describe(), Err: errors.New(redact.Clean(err.Error()))}
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(4)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &UnreachableError{Target: cfg.Describe(), Err: errors.New(redact.Clean(err.Error()))}
	}
	return db, nil
}
