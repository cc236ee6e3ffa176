// Package cli wires configuration, storage and the sync stack into the
// sheetclock commands.
package cli

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/reconcile"
	"github.com/sadopc/sheetclock/internal/tui"
)

// App carries process-level dependencies shared by all commands.
type App struct {
	ConfigPath string

	// IsInteractive reports whether the terminal can host the timer UI.
	IsInteractive func() bool

	// LogOutput overrides where non-interactive commands log. Defaults to the
	// command's stderr.
	LogOutput io.Writer
}

// NewRootCmd creates the top-level "sheetclock" command. Run without a
// subcommand it opens the timer UI.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetclock",
		Short:         "Session timer that keeps a spreadsheet row in step",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runTUI(cmd)
		},
	}
	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "config file (default ~/.config/sheetclock/config.yaml)")

	root.AddCommand(
		newServeCmd(app),
		newSessionsCmd(app),
		newSyncCmd(app),
		newExportCmd(app),
		newConfigCmd(app),
	)

	return root
}

func (a *App) runTUI(cmd *cobra.Command) error {
	if a.IsInteractive != nil && !a.IsInteractive() {
		return errors.New("the timer needs an interactive terminal; see sheetclock --help for other commands")
	}

	e, err := a.openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := tui.Options{
		Store:  e.store,
		UserID: e.userID,
		Logger: e.logger,
	}
	if e.signedIn() {
		opts.Syncer = reconcile.New(reconcile.Options{
			Mirror:  e.mirror(),
			Sheet:   e.sheet(),
			Logger:  e.logger,
			Timeout: e.cfg.Sync.TimeoutDuration(),
		})
		opts.Records = e.records()
		opts.EditConnection = e.remote == nil
	} else {
		e.logger.Warn("starting signed out", "error", e.authErr)
	}

	run := func(ctx context.Context) error {
		p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	}
	if e.signedIn() && e.svc != nil {
		return withRetries(cmd.Context(), e.retryScheduler(), run)
	}
	return run(cmd.Context())
}
