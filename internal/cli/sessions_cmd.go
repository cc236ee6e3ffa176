package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/sheets"
)

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage completed sessions",
	}

	cmd.AddCommand(
		newSessionsListCmd(app),
		newSessionsDeleteCmd(app),
	)

	return cmd
}

func newSessionsListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent completed sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireUser(); err != nil {
				return err
			}

			ctx := cmd.Context()
			list, err := e.records().ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			headers := []string{"ID", "STARTED", "DURATION", "TITLE", "PROJECT"}
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{
					s.ID,
					formatStamp(s.StartedAt),
					formatSeconds(s.DurationSeconds),
					truncate(s.Title, 40),
					s.Project,
				})
			}
			fmt.Fprint(out, renderTable(headers, rows))

			total, err := e.todayTotal(ctx)
			if err != nil {
				e.logger.Warn("today total unavailable", "error", err)
				return nil
			}
			fmt.Fprintf(out, "Today: %s\n", formatSeconds(total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to show")

	return cmd
}

func newSessionsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a session and its spreadsheet row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireUser(); err != nil {
				return err
			}

			res, err := e.records().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.Status == sheets.StatusOK {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s (sheet row %d removed)\n", args[0], res.Row)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s (no sheet row removed)\n", args[0])
			}
			return nil
		},
	}
}
