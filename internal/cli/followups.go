package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/service"
	"github.com/spf13/cobra"
)

func newFollowupsCmd(rt *runtime) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Report every customer with its badges, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := rt.operator(cmd.Context())
			if err != nil {
				return err
			}
			customers := service.NewCustomerService(rt.store, nil, rt.opts.Clock)
			views, err := customers.List(cmd.Context(), op, service.ListQuery{Platform: domain.Platform(platform)})
			if err != nil {
				return err
			}
			sortByUrgency(views)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "URGENCY\tDAYS\tSTAGE\tWEEK\tPLATFORM\tNAME\tCONTACT")
			for _, v := range views {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
					v.Badges.FollowUp.Urgency,
					v.Badges.FollowUp.DaysUntracked,
					v.Badges.Lifecycle.Stage,
					v.Badges.Lifecycle.Weeks,
					v.Platform,
					v.Name,
					v.ContactInfo,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "only xiaohongshu or xianyu customers")
	return cmd
}

func sortByUrgency(views []service.CustomerView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Badges.FollowUp, views[j].Badges.FollowUp
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() > b.Urgency.Rank()
		}
		return a.DaysUntracked > b.DaysUntracked
	})
}
