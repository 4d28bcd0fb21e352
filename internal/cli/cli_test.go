package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/config"
	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/providers"
	"github.com/yubzen/sqlchat/internal/session"
	"github.com/yubzen/sqlchat/internal/state"
)

const testKey = "gsk_test_key_123"

type stubProvider struct {
	pingErr error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(context.Context, providers.CompletionRequest, providers.TokenCallback) (providers.CompletionResponse, error) {
	return providers.CompletionResponse{}, errors.New("not used")
}

func (p *stubProvider) Ping(context.Context) error { return p.pingErr }

func writeReviewsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE reviews (id INTEGER PRIMARY KEY, text TEXT, rating INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataSource.Local.Path = writeReviewsDB(t)
	cfg.DataSource.Watch = false
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	return cfg
}

func TestFlagsApplyOverridesConfig(t *testing.T) {
	cfg := config.Defaults()
	f := &Flags{Source: "postgres", Host: "db:5432", User: "u", Password: "p", Database: "shop", Model: "m1", Verbose: true}
	require.NoError(t, f.Apply(cfg))

	assert.Equal(t, "remote", cfg.DataSource.Kind)
	assert.Equal(t, "postgres", cfg.DataSource.Remote.Driver)
	assert.Equal(t, "m1", cfg.Provider.Model)
	assert.True(t, cfg.Log.Verbose)
	assert.Equal(t, config.DefaultProvider, cfg.Provider.Name, "empty flags keep config values")

	ds := dataSourceConfig(cfg)
	assert.Equal(t, datasource.Remote(datasource.DialectPostgres, "db:5432", "u", "p", "shop"), ds)
}

func TestFlagsApplyRejectsUnknownSource(t *testing.T) {
	err := (&Flags{Source: "oracle"}).Apply(config.Defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown --source")
}

func TestDataSourceConfigDefaultsToLocal(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, datasource.Local(config.DefaultLocalPath), dataSourceConfig(cfg))
}

func TestMissingCredentialErrorMessage(t *testing.T) {
	err := error(&MissingCredentialError{Kind: providers.KindGroq})
	assert.True(t, errors.Is(err, session.ErrMissingCredential))
	assert.True(t, strings.HasPrefix(err.Error(), "Groq API Key is required to proceed."))
	assert.Contains(t, err.Error(), "Please add the Groq API key")
}

func TestBootstrapOpensSessionAndState(t *testing.T) {
	cfg := testConfig(t)
	rt, err := bootstrap(context.Background(), cfg, &Flags{APIKey: testKey}, runtimeOptions{Record: true})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, session.AwaitingQuestion, rt.session.State())
	assert.Equal(t, "sqlite:reviews.db", rt.session.Source())
	assert.Equal(t, "groq", rt.provider.Name())

	rec := historyRecorder{db: rt.db, sessionID: rt.record.ID}
	require.NoError(t, rec.RecordQuestion(context.Background(), "How many reviews?"))
	inputs, err := rt.db.RecentQuestions(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"How many reviews?"}, inputs)

	entries, err := rt.db.SearchQuestions(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, rt.record.ID, entries[0].SessionID)
	assert.Equal(t, "sqlite:reviews.db", entries[0].Source)

	rt.sourceChanged(context.Background(), datasource.Remote(datasource.DialectMySQL, "h", "u", "p", "d"))
	entries, err = rt.db.SearchQuestions(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mysql://u@h/d", entries[0].Source)
}

func TestBootstrapWithoutKeyStopsBeforeOpeningAnything(t *testing.T) {
	keyring.MockInit()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(providers.EnvKey(providers.KindGroq), "")

	cfg := testConfig(t)
	cfg.DataSource.Local.Path = filepath.Join(t.TempDir(), "missing.db")

	rt, err := bootstrap(context.Background(), cfg, &Flags{}, runtimeOptions{Record: true})
	require.Error(t, err)
	assert.Nil(t, rt)

	var missing *MissingCredentialError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, providers.KindGroq, missing.Kind)
	assert.False(t, errors.Is(err, datasource.ErrInvalidConfiguration))
	assert.False(t, errors.Is(err, datasource.ErrUnreachable))
	assert.NoFileExists(t, cfg.State.Path, "state database must not be created")
}

func TestBootstrapRejectsInvalidRemoteBeforeConnecting(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataSource.Kind = "remote"
	cfg.DataSource.Remote.Host = "db.internal"

	_, err := bootstrap(context.Background(), cfg, &Flags{APIKey: testKey}, runtimeOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasource.ErrInvalidConfiguration), "got %v", err)
}

func TestBootstrapReportsMissingDatabaseFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataSource.Local.Path = filepath.Join(t.TempDir(), "missing.db")

	_, err := bootstrap(context.Background(), cfg, &Flags{APIKey: testKey}, runtimeOptions{})
	require.Error(t, err)
}

func TestNewCapabilityAppliesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.MaxIterations = 4
	cfg.Provider.TopK = 25
	cfg.Provider.MaxTokens = 512
	rt := &runtime{cfg: cfg, provider: providers.NewSwitch(&stubProvider{})}

	a, ok := rt.newCapability(nil).(*agent.SQLAgent)
	require.True(t, ok)
	assert.Equal(t, 4, a.MaxIterations)
	assert.Equal(t, 25, a.TopK)
	assert.Equal(t, 512, a.MaxTokens)
	assert.Equal(t, cfg.Provider.Model, a.Model)
}

func TestStepPrinterStreamsToolSteps(t *testing.T) {
	var buf bytes.Buffer
	p := &stepPrinter{w: &buf}
	p.step(agent.StepEvent{Type: agent.StepThinking, Detail: "Looking "})
	p.step(agent.StepEvent{Type: agent.StepThinking, Detail: "at tables"})
	p.step(agent.StepEvent{Type: agent.StepToolCall, Tool: "run_query", SQL: "SELECT COUNT(*) FROM reviews"})
	p.step(agent.StepEvent{Type: agent.StepObservation, Detail: "count\n2\n"})
	p.step(agent.StepEvent{Type: agent.StepToolError, Tool: "run_query", Detail: "no such table"})
	p.step(agent.StepEvent{Type: agent.StepWarning, Detail: "answer now"})

	want := "Looking at tables\n> run_query: SELECT COUNT(*) FROM reviews\n  | count\n  | 2\n  ! run_query failed: no such table\n  ! answer now\n"
	assert.Equal(t, want, buf.String())
}

func TestStepPrinterPrintsFinalAnswerOnce(t *testing.T) {
	var buf bytes.Buffer
	p := &stepPrinter{w: &buf}
	p.step(agent.StepEvent{Type: agent.StepToolCall, Tool: "list_tables"})
	p.step(agent.StepEvent{Type: agent.StepObservation, Detail: "reviews"})
	p.step(agent.StepEvent{Type: agent.StepThinking, Detail: "There are 2 reviews."})
	require.NoError(t, p.finish(agent.TextAnswer("There are 2 reviews.")))

	assert.Equal(t, 1, strings.Count(buf.String(), "There are 2 reviews."), buf.String())
	assert.True(t, strings.HasSuffix(buf.String(), "\n\nThere are 2 reviews.\n"), buf.String())
}

func TestStepPrinterWithoutStepsPrintsOnlyAnswer(t *testing.T) {
	var buf bytes.Buffer
	p := &stepPrinter{w: &buf}
	p.step(agent.StepEvent{Type: agent.StepThinking, Detail: "Hello"})
	require.NoError(t, p.finish(agent.TextAnswer("Hello")))
	assert.Equal(t, "Hello\n", buf.String())
}

func TestPrintAnswerTable(t *testing.T) {
	var buf bytes.Buffer
	res := datasource.QueryResult{Columns: []string{"id", "rating"}, Rows: [][]string{{"1", "5"}, {"2", "3"}}}
	require.NoError(t, printAnswer(&buf, agent.TableAnswer("Ratings", res)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ratings", lines[0])
	assert.Equal(t, []string{"ID", "RATING"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "3"}, strings.Fields(lines[3]))
}

func TestPrintAnswerEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAnswer(&buf, agent.TableAnswer("", datasource.QueryResult{Columns: []string{"id"}})))
	assert.Contains(t, buf.String(), "(no rows)")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, nil))
	assert.Equal(t, "No questions found.\n", buf.String())

	buf.Reset()
	require.NoError(t, printHistory(&buf, []state.HistoryEntry{{
		SessionID: "s1", Content: "How many reviews?", Source: "sqlite:reviews.db", CreatedAt: time.Now(),
	}}))
	assert.Contains(t, buf.String(), "ASKED_AT")
	assert.Contains(t, buf.String(), "How many reviews?")
}

func TestRunDoctorReportsBothChecks(t *testing.T) {
	cfg := testConfig(t)
	newProvider := func(providers.Config) (providers.Provider, error) { return &stubProvider{}, nil }

	checks := runDoctor(context.Background(), cfg, testKey, newProvider)
	require.Len(t, checks, 2)
	assert.True(t, checks[0].OK, checks[0].Detail)
	assert.True(t, checks[1].OK, checks[1].Detail)
	assert.Equal(t, "1 table(s)", checks[1].Detail)

	var buf bytes.Buffer
	require.NoError(t, printDoctor(&buf, checks))
	assert.Contains(t, buf.String(), "source sqlite:reviews.db")
}

func TestRunDoctorFailsOnProviderError(t *testing.T) {
	cfg := testConfig(t)
	newProvider := func(providers.Config) (providers.Provider, error) {
		return &stubProvider{pingErr: providers.ErrUnauthorized}, nil
	}

	checks := runDoctor(context.Background(), cfg, testKey, newProvider)
	assert.False(t, checks[0].OK)
	assert.Contains(t, checks[0].Detail, "rejected")

	var buf bytes.Buffer
	err := printDoctor(&buf, checks)
	require.Error(t, err)
	assert.Equal(t, "1 check(s) failed", err.Error())
}
