package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/competition"
	"github.com/maratonas-femininas/maratonas/internal/identity"
)

func (a *app) canCommand() *cobra.Command {
	var competitionID string
	cmd := &cobra.Command{
		Use:   "can [permission]",
		Short: "Check what the current session may do",
		Long: `Evaluate permissions for the current session. Without an argument every
granted permission is listed.

Permissions: ` + strings.Join(permissionNames(), ", ") + `

Examples:
  maratonas can competitions:create
  maratonas can registrations:on-behalf --competition 6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, _ := a.manager.Current()
			res := authz.Resource{}
			if competitionID != "" {
				var err error
				if res, err = a.resource(cmd.Context(), competitionID); err != nil {
					return err
				}
			}

			if len(args) == 0 {
				for _, p := range authz.Granted(ident.Role, res) {
					a.printf("%s\n", p)
				}
				return nil
			}

			perm, err := authz.ParsePermission(args[0])
			if err != nil {
				return err
			}
			if authz.Allowed(ident.Role, perm, res) {
				a.printf("yes\n")
			} else {
				a.printf("no\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&competitionID, "competition", "", "evaluate against this competition")
	return cmd
}

func permissionNames() []string {
	perms := authz.Permissions()
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return names
}

// resource builds the decision context for the current session from the
// competition and its team, the same inputs the server uses.
func (a *app) resource(ctx context.Context, competitionID string) (authz.Resource, error) {
	api, ident, err := a.client()
	if err != nil {
		return authz.Resource{}, err
	}
	view, err := api.GetCompetition(ctx, competitionID)
	if err != nil {
		return authz.Resource{}, err
	}
	teams, err := api.Teams(ctx)
	if err != nil {
		return authz.Resource{}, err
	}
	var team competition.Team
	for _, t := range teams {
		if t.ID == view.TeamID {
			team = t
			break
		}
	}
	return competition.ResourceFor(view.Competition, team, string(ident.ID), time.Now()), nil
}

// guard refuses locally when the session's role cannot perform perm. The
// server checks again.
func guard(ident identity.Identity, perm authz.Permission, res authz.Resource) error {
	if authz.Allowed(ident.Role, perm, res) {
		return nil
	}
	role := ident.Role.String()
	if ident.Role == identity.RoleNone {
		role = "anonymous"
	}
	return fmt.Errorf("not permitted: %s cannot %s", role, perm)
}
