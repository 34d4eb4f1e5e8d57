package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maratonas-femininas/maratonas/internal/session"
)

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Long: `Log in and keep the session for later commands.

The password is prompted without echo when --password is not given.

Examples:
  maratonas login --email ana@ex.com
  maratonas login --email fernanda@ex.com --password hashF`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				if email, err = readLine(a.io.In, a.io.Err, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.io.ReadPassword("Password: "); err != nil {
					return err
				}
			}

			ok, err := a.manager.EstablishSession(cmd.Context(), email, password)
			switch {
			case errors.Is(err, session.ErrAlreadyAuthenticated):
				current, _ := a.manager.Current()
				return fmt.Errorf("already logged in as %s; run 'maratonas logout' first", current.Email)
			case err != nil:
				return err
			case !ok:
				return errors.New("login failed: check your email and password, or try again later")
			}

			ident, _ := a.manager.Current()
			a.printf("Logged in as %s (%s)\n", ident.Email, ident.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ident, ok := a.manager.Current()
			if !ok {
				a.printf("Not logged in.\n")
				return a.manager.ClearSession(cmd.Context())
			}
			if ident.Token != "" {
				if err := a.api.WithToken(ident.Token).Logout(cmd.Context()); err != nil {
					a.logger.Warn("server logout failed", slog.Any("error", err))
				}
			}
			if err := a.manager.ClearSession(cmd.Context()); err != nil {
				return fmt.Errorf("remove stored session: %w", err)
			}
			a.printf("Logged out %s.\n", ident.Email)
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			snap := a.manager.Snapshot()
			if snap.State != session.StateAuthenticated {
				a.printf("Not logged in.\n")
				return nil
			}
			a.printf("id:    %s\nemail: %s\nrole:  %s\n", snap.Identity.ID, snap.Identity.Email, snap.Identity.Role)
			return nil
		},
	}
}
