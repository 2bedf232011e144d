package report

import (
	"fmt"
	"io"
	"os"

	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/dushixiang/patchkit/internal/runner"
	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/mattn/go-isatty"
)

// Printer 输出运行结果
type Printer struct {
	w       io.Writer
	Verbose bool
	Diff    bool

	ok      *color.Color
	fail    *color.Color
	insert  *color.Color
	delete  *color.Color
	faint   *color.Color
}

// NewPrinter 创建输出器，w 不是终端时不输出颜色
func NewPrinter(w io.Writer) *Printer {
	p := &Printer{
		w:      w,
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed, color.Bold),
		insert: color.New(color.FgGreen),
		delete: color.New(color.FgRed),
		faint:  color.New(color.Faint),
	}
	if f, ok := w.(*os.File); !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		p.DisableColor()
	}
	return p
}

// DisableColor 关闭颜色
func (p *Printer) DisableColor() {
	for _, c := range []*color.Color{p.ok, p.fail, p.insert, p.delete, p.faint} {
		c.DisableColor()
	}
}

// Print 每个目标输出一行摘要，按需输出补丁明细和差异
func (p *Printer) Print(rep runner.Report) {
	for _, a := range rep.Artifacts {
		fmt.Fprintln(p.w, p.Summary(a, rep.DryRun))
		if p.Verbose {
			p.printOutcomes(a)
		}
		if p.Diff && a.Modified && a.IOErr == nil {
			fmt.Fprint(p.w, p.LineDiff(a.Original, a.Content))
		}
	}
}

// Summary 单个目标的一行摘要
func (p *Printer) Summary(a runner.ArtifactResult, dryRun bool) string {
	if a.IOErr != nil {
		return fmt.Sprintf("%s %s: %v", p.fail.Sprint("✗"), a.Path, a.IOErr)
	}

	counts := fmt.Sprintf("应用 %d，已存在 %d，未匹配 %d，失败 %d",
		a.Count(patch.StatusApplied),
		a.Count(patch.StatusAlreadyApplied),
		a.Count(patch.StatusNoOp),
		a.Count(patch.StatusFailed),
	)

	var state string
	switch {
	case a.Written:
		state = "已写入"
	case dryRun && a.Modified:
		state = "dry-run"
	default:
		state = "未写入"
	}

	if err := a.Err(); err != nil {
		return fmt.Sprintf("%s %s: %s [%s] %v", p.fail.Sprint("✗"), a.Path, counts, state, err)
	}
	return fmt.Sprintf("%s %s: %s [%s]", p.ok.Sprint("✓"), a.Path, counts, state)
}

func (p *Printer) printOutcomes(a runner.ArtifactResult) {
	for _, s := range a.Sets {
		if s.Err != nil && len(s.Outcomes) == 0 {
			fmt.Fprintf(p.w, "  - %s: %s\n", s.Set, p.fail.Sprint(s.Err))
			continue
		}
		for _, o := range s.Outcomes {
			status := string(o.Status)
			if o.Status == patch.StatusFailed {
				status = p.fail.Sprint(status)
			}
			fmt.Fprintf(p.w, "  - %s/%s: %s\n", s.Set, o.Patch, status)
		}
		// 后置条件失败时补丁本身都成功了，需要单独输出原因
		if s.Err != nil && !errors.Is(s.Err, patch.ErrMatchNotFound) {
			fmt.Fprintf(p.w, "  - %s: %s\n", s.Set, p.fail.Sprint(s.Err))
		}
	}
}
