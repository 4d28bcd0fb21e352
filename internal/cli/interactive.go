package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/tui"
)

// RunInteractive starts the chat TUI. The TUI owns the terminal, so logs go
// to the configured log file.
func RunInteractive(ctx context.Context, flags *Flags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}

	logFile, err := observability.OpenLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := observability.NewLogger(logFile, observability.LoggerOptions{Verbose: cfg.Log.Verbose})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := bootstrap(ctx, cfg, flags, runtimeOptions{Logger: log})
	if err != nil {
		return err
	}
	defer rt.Close()

	metrics, err := observability.StartMetricsServer(cfg.Metrics.Addr, log)
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	exportDir, err := os.Getwd()
	if err != nil {
		exportDir = filepath.Dir(cfg.State.Path)
	}

	app := tui.NewAppModel(tui.Options{
		Session:         rt.session,
		History:         rt.db,
		SessionID:       rt.record.ID,
		Provider:        rt.kind.DisplayName(),
		Model:           cfg.Provider.Model,
		ExportDir:       exportDir,
		LocalPath:       cfg.DataSource.Local.Path,
		RemoteDriver:    datasource.Dialect(cfg.DataSource.Remote.Driver),
		ConnectProvider: rt.connectProvider,
		SourceChanged:   rt.sourceChanged,
		Logger:          log,
	})
	log.Info("interactive session started", "session", rt.record.ID, "source", rt.session.Source())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
