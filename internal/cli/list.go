package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出可用的补丁集",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTARGET\tSOURCE\tDESCRIPTION")
			for _, e := range a.catalog.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Set.Name, e.Set.Target, e.Source, e.Set.Description)
			}
			return tw.Flush()
		},
	}
}

func newPlanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [set...]",
		Short: "校验补丁集顺序并输出依赖排序后的执行计划",
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.catalog.Select(args...)
			if err != nil {
				return invalid(err)
			}
			if err := patch.ValidateOrder(sets); err != nil {
				fmt.Fprintf(a.stdout, "声明顺序无效: %v\n", err)
			}
			ordered, err := patch.Order(sets)
			if err != nil {
				return invalid(err)
			}
			for i, s := range ordered {
				fmt.Fprintf(a.stdout, "%d. %s (%s)", i+1, s.Name, s.Target)
				if len(s.Requires) > 0 {
					fmt.Fprintf(a.stdout, " requires=%s", quoteAll(s.Requires))
				}
				if len(s.Provides) > 0 {
					fmt.Fprintf(a.stdout, " provides=%s", quoteAll(s.Provides))
				}
				fmt.Fprintln(a.stdout)
			}
			return nil
		},
	}
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ",")
}
