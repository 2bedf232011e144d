package cli

import (
	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/dushixiang/patchkit/internal/report"
	"github.com/dushixiang/patchkit/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	dryRun  bool
	diff    bool
	verbose bool
	order   bool
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [set...]",
		Short: "执行补丁集，不指定时执行全部",
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.selectSets(args, opts.order)
			if err != nil {
				return err
			}

			rep := a.newRunner(opts.dryRun).Run(cmd.Context(), sets)
			a.logger.Info("运行结束", zap.String("run_id", rep.RunID), zap.Int("artifacts", len(rep.Artifacts)), zap.Int("exit_code", rep.ExitCode()))

			p := report.NewPrinter(a.stdout)
			p.Verbose = opts.verbose
			p.Diff = opts.diff
			p.Print(rep)

			if code := rep.ExitCode(); code != runner.ExitOK {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "只计算结果，不写回文件")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "输出变化的行")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出每个补丁的状态")
	cmd.Flags().BoolVar(&opts.order, "order", false, "按前置/后置标记自动排序")
	return cmd
}

// selectSets 选出补丁集并校验顺序，reorder 为 true 时按依赖排序
func (a *app) selectSets(names []string, reorder bool) ([]patch.PatchSet, error) {
	sets, err := a.catalog.Select(names...)
	if err != nil {
		return nil, invalid(err)
	}
	if reorder {
		if sets, err = patch.Order(sets); err != nil {
			return nil, invalid(err)
		}
		return sets, nil
	}
	if err := patch.ValidateOrder(sets); err != nil {
		return nil, invalid(err)
	}
	return sets, nil
}
