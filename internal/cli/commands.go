package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/config"
	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/providers"
	"github.com/yubzen/sqlchat/internal/state"
)

const doctorTimeout = 15 * time.Second

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func NewAskCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question without the TUI, streaming the agent's steps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := stderrLogger(cfg, cmd.ErrOrStderr(), isTerminal(os.Stderr))
			rt, err := bootstrap(ctx, cfg, flags, runtimeOptions{Record: true, Logger: log})
			if err != nil {
				return err
			}
			defer rt.Close()

			p := &stepPrinter{w: cmd.OutOrStdout()}
			answer, err := rt.session.Submit(ctx, strings.Join(args, " "), p.step)
			if err != nil {
				p.flush()
				return err
			}
			return p.finish(answer)
		},
	}
}

// stepPrinter writes agent steps as they happen. Thinking text is held back
// until the next tool step: text still pending when the answer arrives is
// the final turn, which printAnswer shows.
type stepPrinter struct {
	w       io.Writer
	pending strings.Builder
	wrote   bool
}

func (p *stepPrinter) step(ev agent.StepEvent) {
	if ev.Type == agent.StepThinking {
		p.pending.WriteString(ev.Detail)
		return
	}
	p.flush()
	switch ev.Type {
	case agent.StepToolCall:
		line := "\n> " + ev.Tool
		if ev.SQL != "" {
			line += ": " + ev.SQL
		}
		p.println(line)
	case agent.StepObservation:
		for _, l := range strings.Split(strings.TrimRight(ev.Detail, "\n"), "\n") {
			p.println("  | " + l)
		}
	case agent.StepToolError:
		p.println(fmt.Sprintf("  ! %s failed: %s", ev.Tool, ev.Detail))
	case agent.StepWarning:
		p.println("  ! " + ev.Detail)
	}
}

func (p *stepPrinter) flush() {
	if p.pending.Len() == 0 {
		return
	}
	fmt.Fprint(p.w, p.pending.String())
	p.pending.Reset()
	p.wrote = true
}

func (p *stepPrinter) println(line string) {
	fmt.Fprintln(p.w, line)
	p.wrote = true
}

// finish drops the streamed final turn and prints the answer once.
func (p *stepPrinter) finish(a agent.Answer) error {
	p.pending.Reset()
	if p.wrote {
		fmt.Fprintln(p.w)
	}
	return printAnswer(p.w, a)
}

func printAnswer(w io.Writer, a agent.Answer) error {
	if a.Kind != agent.AnswerTable || a.Table == nil {
		fmt.Fprintln(w, a.Text)
		return nil
	}
	if a.Text != "" {
		fmt.Fprintln(w, a.Text)
	}
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(a.Table.Columns, "\t")))
	for _, row := range a.Table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(a.Table.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
	}
	if a.Table.Truncated {
		fmt.Fprintln(w, "(result truncated)")
	}
	return nil
}

func NewSchemaCmd(flags *Flags) *cobra.Command {
	var primaryOnly bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the tables and columns of the configured data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			dsCfg := dataSourceConfig(cfg)
			h, err := datasource.Open(cmd.Context(), dsCfg, datasource.HandleOptions{
				Validity: cfg.DataSource.Validity.Duration,
				Logger:   stderrLogger(cfg, cmd.ErrOrStderr(), isTerminal(os.Stderr)),
			})
			if err != nil {
				return err
			}
			defer h.Close()

			schema := datasource.NewSchema(h)
			out := cmd.OutOrStdout()
			if primaryOnly {
				cols, err := schema.PrimaryColumns(cmd.Context(), cfg.DataSource.PrimaryTable, cfg.DataSource.Columns)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Columns of %s: %s\n", cfg.DataSource.PrimaryTable, strings.Join(cols, ", "))
				return nil
			}
			tables, err := schema.FetchSchema(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Source: %s\n\n", dsCfg.Describe())
			fmt.Fprintln(out, datasource.FormatSchema(tables))
			return nil
		},
	}
	cmd.Flags().BoolVar(&primaryOnly, "primary", false, "Only list the columns of the primary table")
	return cmd
}

func NewAuthCmd(flags *Flags) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}

	statusCmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"list"},
		Short:   "Show which providers have a key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}

	var setKey string
	setCmd := &cobra.Command{
		Use:   "set [provider]",
		Short: "Store the API key for a provider (default: the configured one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := authKind(flags, args)
			if err != nil {
				return err
			}
			key := strings.TrimSpace(setKey)
			if key == "" {
				key, err = promptSecret(cmd, fmt.Sprintf("Enter the %s API key: ", kind.DisplayName()))
				if err != nil {
					return err
				}
			}
			if err := providers.StoreCredential(string(kind), key); err != nil {
				return fmt.Errorf("store key for %s: %w", kind.DisplayName(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key for %s\n", kind.DisplayName())
			return nil
		},
	}
	setCmd.Flags().StringVar(&setKey, "key", "", "API key value")

	removeCmd := &cobra.Command{
		Use:     "remove [provider]",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove the stored API key for a provider",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := authKind(flags, args)
			if err != nil {
				return err
			}
			err = providers.DeleteCredential(string(kind))
			if errors.Is(err, providers.ErrCredentialNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No stored key to remove for %s\n", kind.DisplayName())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed API key for %s\n", kind.DisplayName())
			return nil
		},
	}

	authCmd.AddCommand(statusCmd, setCmd, removeCmd)
	return authCmd
}

func authKind(flags *Flags, args []string) (providers.Kind, error) {
	if len(args) == 1 {
		return providers.ParseKind(args[0])
	}
	cfg, err := flags.loadConfig()
	if err != nil {
		return "", err
	}
	return providers.ParseKind(cfg.Provider.Name)
}

// promptSecret reads a key without echo when stdin is a terminal, otherwise
// one line from stdin.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if isTerminal(os.Stdin) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthStatus(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS")
	for _, kind := range providers.Kinds() {
		status := "not connected"
		if _, src, err := providers.ResolveCredential(kind, "", os.Getenv); err == nil {
			status = "connected (" + string(src) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\n", kind.DisplayName(), status)
	}
	return tw.Flush()
}

func NewHistoryCmd(flags *Flags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [term]",
		Short: "List previously asked questions, optionally filtered by a term",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			db, err := state.ConnectContext(cmd.Context(), cfg.State.Path, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			entries, err := db.SearchQuestions(cmd.Context(), filter, limit)
			if err != nil {
				return fmt.Errorf("search history: %w", err)
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	return cmd
}

func printHistory(w io.Writer, entries []state.HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No questions found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ASKED_AT\tSOURCE\tQUESTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Source, e.Content)
	}
	return tw.Flush()
}

type doctorCheck struct {
	Name    string
	OK      bool
	Detail  string
	Latency time.Duration
}

func NewDoctorCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the provider key and the data source connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()
			checks := runDoctor(ctx, cfg, flags.APIKey, nil)
			return printDoctor(cmd.OutOrStdout(), checks)
		},
	}
}

// runDoctor checks the provider and the data source concurrently. newProvider
// is nil outside tests.
func runDoctor(ctx context.Context, cfg *config.Config, flagKey string, newProvider func(providers.Config) (providers.Provider, error)) []doctorCheck {
	if newProvider == nil {
		newProvider = providers.New
	}
	checks := make([]doctorCheck, 2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kind, key, err := resolveAPIKey(cfg, flagKey)
		name := "provider " + cfg.Provider.Name
		if err != nil {
			checks[0] = doctorCheck{Name: name, Detail: err.Error()}
			return nil
		}
		p, err := newProvider(providers.Config{Kind: kind, APIKey: key, BaseURL: cfg.Provider.BaseURL})
		if err != nil {
			checks[0] = doctorCheck{Name: name, Detail: err.Error()}
			return nil
		}
		status := providers.CheckAll(gctx, []providers.Provider{p})[0]
		checks[0] = doctorCheck{Name: name, OK: status.IsOnline, Detail: status.ErrorMsg, Latency: status.Latency}
		return nil
	})

	g.Go(func() error {
		dsCfg := dataSourceConfig(cfg)
		name := "source " + dsCfg.Describe()
		start := time.Now()
		h, err := datasource.Open(gctx, dsCfg, datasource.HandleOptions{})
		if err != nil {
			checks[1] = doctorCheck{Name: name, Detail: err.Error()}
			return nil
		}
		defer h.Close()
		tables, err := datasource.NewSchema(h).ListTables(gctx)
		if err != nil {
			checks[1] = doctorCheck{Name: name, Detail: err.Error(), Latency: time.Since(start)}
			return nil
		}
		checks[1] = doctorCheck{Name: name, OK: true, Detail: fmt.Sprintf("%d table(s)", len(tables)), Latency: time.Since(start)}
		return nil
	})

	_ = g.Wait()
	return checks
}

func printDoctor(w io.Writer, checks []doctorCheck) error {
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tLATENCY\tDETAIL")
	failed := 0
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "failed"
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, status, c.Latency.Round(time.Millisecond), strings.ReplaceAll(c.Detail, "\n", " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func NewConfigCmd(flags *Flags) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if printOnly || !isTerminal(os.Stdout) {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
				for _, row := range config.NewFormModel(cfg, flags.configPath()).Lines() {
					fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
				}
				return tw.Flush()
			}
			return config.RunConfigForm(cfg)
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print instead of opening the viewer")
	return cmd
}
