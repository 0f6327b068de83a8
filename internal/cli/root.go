// Package cli is the todoctl command tree. Without a subcommand it starts
// the terminal UI; the subcommands are scriptable and print to stdout.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/app"
	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/internal/session"
	"github.com/nhle/todoctl/internal/store"
	appsync "github.com/nhle/todoctl/internal/sync"
	"github.com/nhle/todoctl/internal/todos"
)

// errNotLoggedIn is returned by commands that need a cached session.
var errNotLoggedIn = errors.New("not logged in; run `todoctl login` first")

// App carries the global flags and the resources opened for one run.
type App struct {
	ConfigPath string
	APIURL     string

	cfg     *model.AppConfig
	log     *slog.Logger
	closers []io.Closer
}

// Execute runs the command line args and releases what the command opened.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &App{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "todoctl",
		Short:        "Terminal client for the todo API",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive UI
  todoctl

  # Scriptable commands
  todoctl login --email me@example.com
  todoctl todos list --status incomplete --json
  todoctl todos add --title "Buy milk" --priority high

  # Run a local API server
  todoctl serve --addr :8000 --db ./todos.db
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), a)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup()
	}

	cmd.PersistentFlags().StringVar(&a.ConfigPath, "config", model.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().StringVar(&a.APIURL, "api-url", "", "API base URL (overrides api.base_url)")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newTodosCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// setup loads the config and opens the log file.
func (a *App) setup() error {
	cfg, err := model.LoadConfig(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(a.APIURL, "/")
	}
	a.cfg = cfg

	logger, f, err := logging.Open(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.log = logger
	a.closers = append(a.closers, f)
	return nil
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// credentials opens the configured session cache backend.
func (a *App) credentials() (credential.Store, error) {
	if a.cfg.Session.Backend == model.SessionBackendSQLite {
		st, err := store.NewSQLiteStore(a.cfg.Session.CachePath)
		if err != nil {
			return nil, fmt.Errorf("opening session cache: %w", err)
		}
		a.closers = append(a.closers, st)
		return st.Sessions(), nil
	}

	ring, err := credential.OpenKeyring()
	if err != nil {
		return nil, err
	}
	return credential.NewKeyringStore(ring), nil
}

// services wires the gateway, the session manager and the todo controller
// around one notifier.
type services struct {
	client  *api.Client
	session *session.Manager
	todos   *todos.Controller
}

func (a *App) services(n notify.Notifier) (*services, error) {
	creds, err := a.credentials()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(a.cfg.API.BaseURL, creds,
		api.WithTimeout(a.cfg.API.Timeout()),
		api.WithNotifier(n),
		api.WithLogger(a.log),
	)
	mgr := session.NewManager(client, creds, client.Events(), session.WithLogger(a.log))
	ctrl := todos.New(client,
		todos.WithNotifier(n),
		todos.WithLogger(a.log),
		todos.WithPageSize(a.cfg.Todos.PageSize),
		todos.WithRefetchAfterMutation(a.cfg.Todos.RefetchAfterMutation),
	)
	return &services{client: client, session: mgr, todos: ctrl}, nil
}

// restore loads the cached session and fails unless it is still valid.
func (s *services) restore(ctx context.Context) error {
	if err := s.session.Initialize(ctx); err != nil {
		return fmt.Errorf("%w (%v)", errNotLoggedIn, err)
	}
	if !s.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

func runTUI(ctx context.Context, a *App) error {
	relay := appsync.New(64)
	svc, err := a.services(relay)
	if err != nil {
		return err
	}
	defer svc.session.Close()

	relay.Watch(svc.session)
	defer relay.Stop()

	p := tea.NewProgram(app.New(ctx, svc.session, svc.todos, relay), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// cliNotifier prints notifications to the command's stderr.
func cliNotifier(cmd *cobra.Command) notify.Notifier {
	return notify.NewWriter(cmd.ErrOrStderr(), func(k notify.Kind, msg string) string {
		return fmt.Sprintf("%s: %s", k, msg)
	})
}
