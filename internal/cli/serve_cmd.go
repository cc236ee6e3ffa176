package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/api"
	"github.com/sadopc/sheetclock/internal/identity"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the running-session mirror and sync API for other devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.svc == nil {
				return errors.New("serve runs against the local database; unset remote.url")
			}

			ctx := cmd.Context()
			grants := e.cfg.Auth.Grants()
			if len(grants) == 0 {
				e.logger.Warn("no auth.tokens configured, every request will be rejected")
			}
			seeded := make(map[string]bool)
			for _, g := range grants {
				if g.UserID == "" || seeded[g.UserID] {
					continue
				}
				seeded[g.UserID] = true
				if err := seedConnection(ctx, e.store, g.UserID, e.cfg.Sheet); err != nil {
					return err
				}
			}

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv := api.NewServer(e.store, e.svc, identity.NewStaticVerifier(grants), e.logger)
			return withRetries(ctx, e.retryScheduler(), func(ctx context.Context) error {
				return srv.Run(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")

	return cmd
}
