package patch

import (
	"strings"

	"go.uber.org/zap"
)

// Engine 补丁引擎，纯内存操作，不做任何 I/O
type Engine struct {
	logger *zap.Logger
}

// NewEngine 创建引擎
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply 按声明顺序在同一缓冲区上依次应用补丁集。
// 任一补丁集失败时该补丁集的修改会被回滚，且结果不会标记为已修改。
func (e *Engine) Apply(artifact Artifact, sets ...PatchSet) Result {
	res := Result{Path: artifact.Path, Original: artifact.Content}
	working := artifact.Content
	for _, set := range sets {
		next, sr := e.applySet(working, set)
		if sr.Err != nil {
			e.logger.Warn("补丁集执行失败", zap.String("path", artifact.Path), zap.String("set", set.Name), zap.Error(sr.Err))
		} else {
			working = next
		}
		res.Sets = append(res.Sets, sr)
	}
	res.Content = working
	res.Modified = !res.Failed() && working != artifact.Content
	return res
}

func (e *Engine) applySet(text string, set PatchSet) (string, SetResult) {
	sr := SetResult{Set: set.Name}

	for _, marker := range set.Requires {
		if !strings.Contains(text, marker) {
			sr.Err = &Error{Kind: ErrPreconditionMissing, Set: set.Name, Marker: marker}
			return text, sr
		}
	}

	provided := providedIn(text, set.Provides)
	working := text
	if len(set.Patches) == 0 && set.Content != "" {
		o := Outcome{Patch: "content", Matched: true, Status: StatusAlreadyApplied}
		if working != set.Content {
			working = set.Content
			o.Applied = true
			o.Status = StatusApplied
		}
		sr.Outcomes = append(sr.Outcomes, o)
	}

	for i, p := range set.Patches {
		next, o := applyPatch(working, p, i, provided)
		switch o.Status {
		case StatusNoOp:
			e.logger.Info("补丁未匹配，跳过", zap.String("set", set.Name), zap.String("patch", o.Patch))
		case StatusFailed:
			if sr.Err == nil {
				sr.Err = &Error{Kind: ErrMatchNotFound, Set: set.Name, Patch: o.Patch}
			}
		default:
			e.logger.Debug("补丁处理完成", zap.String("set", set.Name), zap.String("patch", o.Patch), zap.String("status", string(o.Status)))
		}
		working = next
		sr.Outcomes = append(sr.Outcomes, o)
	}
	if sr.Err != nil {
		return text, sr
	}

	for _, marker := range set.Provides {
		if !strings.Contains(working, marker) {
			sr.Err = &Error{Kind: ErrPostconditionMissing, Set: set.Name, Marker: marker}
			return text, sr
		}
	}
	return working, sr
}

// providedIn 补丁集声明了后置标记且全部已存在
func providedIn(text string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, marker := range markers {
		if !strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// applyPatch 应用单个补丁，只替换第一次出现的位置。
// provided 表示补丁集的后置标记在执行前已全部存在，此时未匹配视为已应用。
func applyPatch(text string, p Patch, index int, provided bool) (string, Outcome) {
	o := Outcome{Patch: p.label(index)}

	if p.Unless != "" && contains(text, p.Unless, p.Mode) {
		o.Status = StatusAlreadyApplied
		return text, o
	}

	for _, anchor := range p.Find {
		sp, ok := locate(text, anchor, p.Mode)
		if !ok {
			continue
		}
		o.Matched = true
		o.Anchor = anchor
		// 插入式补丁：命中位置已被替换文本包围时，再次替换会重复插入
		if insertedAt(text, sp, p.Replace, anchor) {
			o.Status = StatusAlreadyApplied
			return text, o
		}
		o.Applied = true
		o.Status = StatusApplied
		return text[:sp.start] + p.Replace + text[sp.end:], o
	}

	switch {
	case provided:
		o.Status = StatusAlreadyApplied
	case p.Required:
		o.Status = StatusFailed
	default:
		o.Status = StatusNoOp
	}
	return text, o
}

// insertedAt 判断 text 在命中区间处是否已经是 replace 的内容
func insertedAt(text string, sp span, replace, anchor string) bool {
	k := strings.Index(replace, text[sp.start:sp.end])
	if k < 0 {
		k = strings.Index(replace, anchor)
	}
	if k < 0 || sp.start < k {
		return false
	}
	return strings.HasPrefix(text[sp.start-k:], replace)
}
