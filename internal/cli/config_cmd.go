package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	cmd.AddCommand(
		newConfigInitCmd(app),
		newConfigShowCmd(app),
	)

	return cmd
}

func (a *App) configPath() string {
	if a.ConfigPath != "" {
		return a.ConfigPath
	}
	return config.DefaultPath()
}

func newConfigInitCmd(app *App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = uuid.NewString()
			}
			path := app.configPath()
			if err := config.WriteDefault(path, token); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", path)
			fmt.Fprintf(out, "Signed in as %q. Set sheet.spreadsheet_id and a google credential to sync.\n", config.DefaultUser)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Credential for this device (generated when empty)")

	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.ConfigPath)
			if err != nil {
				return err
			}
			body, err := config.Render(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", app.configPath(), body)
			return nil
		},
	}
}
