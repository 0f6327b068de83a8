package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/todoctl/internal/devserver"
	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/store"
)

func newServeCmd(a *App) *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local todo API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			// Request logs go to stderr.
			logger := logging.New(cmd.ErrOrStderr(), a.cfg.Log.Level)
			srv := devserver.New(st, devserver.WithLogger(logger))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Info("serving", "addr", addr, "db", dbPath)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().StringVar(&dbPath, "db", filepath.Join(model.DefaultCacheDir(), "server.db"), "SQLite database file")

	return cmd
}
