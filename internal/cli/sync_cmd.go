package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/store"
)

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect and retry spreadsheet syncs of completed sessions",
	}

	cmd.AddCommand(
		newSyncLogsCmd(app),
		newSyncRetryCmd(app),
	)

	return cmd
}

func parseSyncStatus(s string) (store.SyncStatus, error) {
	switch st := store.SyncStatus(s); st {
	case "", store.SyncPending, store.SyncSuccess, store.SyncFailed, store.SyncNotConfigured:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q (want pending, success, failed or not_configured)", s)
}

func newSyncLogsCmd(app *App) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List sync attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseSyncStatus(status)
			if err != nil {
				return err
			}
			e, err := app.openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireUser(); err != nil {
				return err
			}

			logs, err := e.syncLogs().ListSyncLogs(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				fmt.Fprintln(out, "No sync logs found.")
				return nil
			}

			headers := []string{"ID", "SESSION", "STATUS", "RETRIES", "UPDATED", "REASON"}
			rows := make([][]string, 0, len(logs))
			for _, l := range logs {
				rows = append(rows, []string{
					l.ID,
					l.SessionID,
					string(l.Status),
					strconv.Itoa(l.RetryCount),
					formatStamp(l.UpdatedAt),
					truncate(l.Reason, 48),
				})
			}
			fmt.Fprint(out, renderTable(headers, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, success, failed, not_configured)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of logs to show")

	return cmd
}

func newSyncRetryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [LOG_ID]",
		Short: "Retry one failed sync, or every failed sync",
		Args:  cobra.MaximumNArgs(1),
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
			logs := e.syncLogs()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				l, err := logs.Retry(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Sync %s: %s (retries %d)\n", l.ID, l.Status, l.RetryCount)
				return nil
			}

			failed, err := logs.ListSyncLogs(ctx, store.SyncFailed, 0)
			if err != nil {
				return err
			}
			unconfigured, err := logs.ListSyncLogs(ctx, store.SyncNotConfigured, 0)
			if err != nil {
				return err
			}
			failed = append(failed, unconfigured...)
			ok := 0
			for _, f := range failed {
				l, err := logs.Retry(ctx, f.ID)
				if err != nil {
					e.logger.Error("retry failed", "log_id", f.ID, "error", err)
					continue
				}
				if l.Status == store.SyncSuccess {
					ok++
				}
			}
			fmt.Fprintf(out, "Retried %d failed syncs, %d succeeded\n", len(failed), ok)
			return nil
		},
	}
}
