package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/client"
	"github.com/Tiliavir/timegrid/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the timesheet server and store the token",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := client.TokenPath()
	if err != nil {
		return err
	}
	if _, err := client.Login(cmd.Context(), cfg.Auth, path, cmd.OutOrStdout()); err != nil {
		return err
	}

	hc, err := client.HTTPClient(cmd.Context(), cfg.Auth, path, cfg.Server.Timeout())
	if err != nil {
		return err
	}
	u, err := client.New(cfg.Server.BaseURL, hc).Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("token stored, but the server rejected it: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", u.Name(), u.Login)
	return nil
}
