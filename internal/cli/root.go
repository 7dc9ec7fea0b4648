// Package cli implements taskctl, the command line client for the Taskflow
// API. It works offline: reads fall back to the local cache and writes are
// queued until the server is reachable again.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bryan-kier/productivity/internal/client"
	"github.com/bryan-kier/productivity/internal/localstore"
	"github.com/bryan-kier/productivity/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is what every command runs against.
type env struct {
	out     io.Writer
	log     *zap.Logger
	store   *localstore.Store
	client  *client.Client
	monitor *client.Monitor
}

func (e *env) close() {
	if e.monitor != nil {
		e.monitor.Close()
		e.monitor = nil
	}
	if e.store != nil {
		_ = e.store.Close()
		e.store = nil
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
}

// Run executes taskctl with args, writing command output to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	root, e := newRoot(out)
	defer e.close()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRoot(out io.Writer) (*cobra.Command, *env) {
	e := &env{out: out}
	v := newViper()

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage Taskflow tasks, notes and announcements from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v, cmd.Flags())
			if err != nil {
				return err
			}
			if e.log, err = logger.New(logger.Options{Level: s.LogLevel, Format: "console", Stderr: true}); err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			if e.store, err = localstore.Open(s.Store); err != nil {
				return err
			}
			e.client = client.New(client.Options{
				BaseURL:    s.API,
				Token:      s.Token,
				HTTPClient: &http.Client{Timeout: s.Timeout},
				Store:      e.store,
				Log:        e.log,
			})
			e.monitor = client.NewMonitor(e.client, s.PollInterval)
			// Replays anything queued by earlier invocations when the server is up.
			e.monitor.Check(cmd.Context())
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ~/.config/taskflow/taskctl.yaml)")
	pf.String("api", "", "API base url")
	pf.String("token", "", "bearer token")
	pf.String("store", "", "local cache and queue database")
	pf.Duration("timeout", 0, "request timeout")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Duration("poll-interval", 0, "how often status --watch checks the server")

	root.AddCommand(
		tasksCmd(e),
		subtasksCmd(e),
		notesCmd(e),
		categoriesCmd(e),
		announcementCmd(e),
		queueCmd(e),
		statusCmd(e),
	)
	return root, e
}
