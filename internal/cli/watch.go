package cli

import (
	"context"
	"time"

	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/dushixiang/patchkit/internal/report"
	"github.com/dushixiang/patchkit/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	var reorder bool
	cmd := &cobra.Command{
		Use:   "watch [set...]",
		Short: "先执行一次补丁集，之后目标文件变化时重新执行",
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.selectSets(args, reorder)
			if err != nil {
				return err
			}

			var targets []string
			seen := make(map[string]bool)
			for _, s := range sets {
				if !seen[s.Target] {
					seen[s.Target] = true
					targets = append(targets, s.Target)
				}
			}

			w, err := watch.NewWatcher(a.cfg.Root, targets, a.logger)
			if err != nil {
				return invalid(err)
			}
			ctx := cmd.Context()
			if err := w.Start(ctx); err != nil {
				return invalid(err)
			}
			defer w.Stop()

			r := a.newRunner(false)
			p := report.NewPrinter(a.stdout)
			p.Print(r.Run(ctx, sets))

			w.Serve(ctx, debounce, func(ctx context.Context, paths []string) {
				changed := setsFor(sets, paths)
				a.logger.Info("目标文件变化，重新执行", zap.Strings("paths", paths), zap.Int("sets", len(changed)))
				// 自身写入也会触发事件，重复执行是无操作
				p.Print(r.Run(ctx, changed))
			})
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "合并变化事件的时间窗口")
	cmd.Flags().BoolVar(&reorder, "order", false, "按前置/后置标记自动排序")
	return cmd
}

// setsFor 保持原顺序选出目标在 paths 中的补丁集
func setsFor(sets []patch.PatchSet, paths []string) []patch.PatchSet {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	var out []patch.PatchSet
	for _, s := range sets {
		if want[s.Target] {
			out = append(out, s)
		}
	}
	return out
}
