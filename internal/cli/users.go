package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/hongyu-crm/crm-backend/internal/crm/service"
	"github.com/spf13/cobra"
)

func newSeedCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the seed super admin if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users := service.NewUserService(rt.store, rt.opts.Clock)
			created, err := users.EnsureSeed(cmd.Context(), rt.cfg.Seed.Username, rt.cfg.Seed.Password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created super admin %q\n", rt.cfg.Seed.Username)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "super admin already present")
			}
			return nil
		},
	}
}

func newUsersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage operator accounts"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := rt.operator(cmd.Context())
			if err != nil {
				return err
			}
			users, err := service.NewUserService(rt.store, rt.opts.Clock).List(cmd.Context(), op)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tVIEW ALL\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Role, u.CanViewAll, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <username> <password>",
		Short: "Create an admin account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := rt.operator(cmd.Context())
			if err != nil {
				return err
			}
			u, err := service.NewUserService(rt.store, rt.opts.Clock).Create(cmd.Context(), op, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.ID)
			return nil
		},
	})
	return cmd
}
