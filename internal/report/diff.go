package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 2

// LineDiff 按行比较 before/after，只保留变化附近的上下文行
func (p *Printer) LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for i, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, l := range chunk {
				out.WriteString(p.insert.Sprint("+"+l) + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, l := range chunk {
				out.WriteString(p.delete.Sprint("-"+l) + "\n")
			}
		case diffmatchpatch.DiffEqual:
			head, tail, skipped := contextLines(chunk, i == 0, i == len(diffs)-1)
			for _, l := range head {
				out.WriteString(" " + l + "\n")
			}
			if skipped {
				out.WriteString(p.faint.Sprint(" ...") + "\n")
			}
			for _, l := range tail {
				out.WriteString(" " + l + "\n")
			}
		}
	}
	return out.String()
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// contextLines 相等块只保留与变化相邻的 diffContext 行
func contextLines(chunk []string, first, last bool) (head, tail []string, skipped bool) {
	keepHead, keepTail := diffContext, diffContext
	if first {
		keepHead = 0
	}
	if last {
		keepTail = 0
	}
	n := len(chunk)
	if keepHead+keepTail >= n {
		return chunk, nil, false
	}
	return chunk[:keepHead], chunk[n-keepTail:], true
}
