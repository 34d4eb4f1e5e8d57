package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maratonas-femininas/maratonas/internal/apiclient"
	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/competition"
)

func (a *app) competitionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "competitions",
		Aliases: []string{"comp"},
		Short:   "List and manage competitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		a.competitionsListCommand(),
		a.competitionsShowCommand(),
		a.competitionsCreateCommand(),
		a.competitionsFinalizeCommand(),
		a.competitionsRegisterCommand(),
		a.competitionsSponsorCommand(),
	)
	return cmd
}

func (a *app) competitionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List competitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, _, err := a.client()
			if err != nil {
				return err
			}
			list, err := api.ListCompetitions(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.io.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDATE\tSTATUS\tREGISTERED")
			for _, c := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Date.Format("2006-01-02"), c.Status, capacity(c))
			}
			return w.Flush()
		},
	}
}

func capacity(c competition.Competition) string {
	if c.MaxParticipants == 0 {
		return strconv.Itoa(c.Registrations)
	}
	return fmt.Sprintf("%d/%d", c.Registrations, c.MaxParticipants)
}

func (a *app) competitionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a competition and what you may do with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := a.client()
			if err != nil {
				return err
			}
			view, err := api.GetCompetition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", view.Name)
			a.printf("  date:        %s %s\n", view.Date.Format("2006-01-02"), view.StartTime)
			a.printf("  location:    %s\n", view.Location)
			a.printf("  status:      %s\n", view.Status)
			a.printf("  registered:  %s\n", capacity(view.Competition))
			if view.Description != "" {
				a.printf("  description: %s\n", view.Description)
			}
			if len(view.Permissions) > 0 {
				names := make([]string, len(view.Permissions))
				for i, p := range view.Permissions {
					names[i] = string(p)
				}
				a.printf("  you may:     %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func (a *app) competitionsCreateCommand() *cobra.Command {
	var in apiclient.NewCompetition
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a competition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, ident, err := a.client()
			if err != nil {
				return err
			}
			if err := guard(ident, authz.PermCreateCompetition, authz.Resource{}); err != nil {
				return err
			}
			c, err := api.CreateCompetition(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Created %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "competition name")
	cmd.Flags().StringVar(&in.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Time, "time", "", "start time, HH:MM")
	cmd.Flags().StringVar(&in.Location, "location", "", "venue")
	cmd.Flags().IntVar(&in.MaxParticipants, "max", 0, "participant cap, 0 for none")
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().StringVar(&in.TeamID, "team", "", "organizing team id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func (a *app) competitionsFinalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <id>",
		Short: "Close a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, ident, err := a.client()
			if err != nil {
				return err
			}
			res, err := a.resource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := guard(ident, authz.PermFinalizeCompetition, res); err != nil {
				return err
			}
			c, err := api.FinalizeCompetition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%s is now %s\n", c.Name, c.Status)
			return nil
		},
	}
}

func (a *app) competitionsRegisterCommand() *cobra.Command {
	var participant, category string
	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register yourself, or another participant, in a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, ident, err := a.client()
			if err != nil {
				return err
			}
			res, err := a.resource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			perm := authz.PermRegister
			if participant != "" && participant != string(ident.ID) {
				perm = authz.PermRegisterOnBehalf
			}
			if err := guard(ident, perm, res); err != nil {
				return err
			}
			reg, err := api.Register(cmd.Context(), args[0], participant, category)
			if err != nil {
				return err
			}
			a.printf("Registered %s (registration %s)\n", reg.ParticipantID, reg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&participant, "participant", "", "participant id, when registering someone else")
	cmd.Flags().StringVar(&category, "category", "", "category")
	return cmd
}

func (a *app) competitionsSponsorCommand() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "sponsor <id>",
		Short: "Sponsor a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, ident, err := a.client()
			if err != nil {
				return err
			}
			if err := guard(ident, authz.PermSponsor, authz.Resource{}); err != nil {
				return err
			}
			cents, err := parseAmount(amount)
			if err != nil {
				return err
			}
			sp, err := api.Sponsor(cmd.Context(), args[0], cents)
			if err != nil {
				return err
			}
			a.printf("Thank you! Contribution %s recorded (%d.%02d)\n", sp.ID, sp.Amount/100, sp.Amount%100)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "contribution, e.g. 1500 or 1500.50")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// parseAmount converts a decimal amount into cents.
func parseAmount(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return int64(math.Round(v * 100)), nil
}
