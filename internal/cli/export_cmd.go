package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/export"
	"github.com/sadopc/sheetclock/internal/session"
)

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed sessions",
	}

	cmd.AddCommand(
		newExportFormatCmd(app, "csv", export.ToCSV, export.WriteCSV),
		newExportFormatCmd(app, "json", export.ToJSON, export.WriteJSON),
	)

	return cmd
}

func newExportFormatCmd(
	app *App,
	format string,
	toFile func([]session.Session, string) error,
	write func(w io.Writer, sessions []session.Session) error,
) *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   format,
		Short: fmt.Sprintf("Export sessions as %s", format),
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

			list, err := e.records().ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if out == "" {
				return write(cmd.OutOrStdout(), list)
			}
			if err := toFile(list, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d sessions to %s\n", len(list), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	cmd.Flags().IntVar(&limit, "limit", 10000, "Maximum number of sessions to export")

	return cmd
}
