package patch

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Matcher 精确匹配的候选子串，按顺序尝试，命中第一个存在的
type Matcher []string

// UnmarshalYAML 同时支持单个字符串和字符串列表
func (m *Matcher) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*m = Matcher{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*m = items
		return nil
	default:
		return fmt.Errorf("find: expected string or list at line %d", value.Line)
	}
}

// Patch 单个声明式替换
type Patch struct {
	Name     string  `yaml:"name,omitempty"`
	Find     Matcher `yaml:"find" validate:"required,min=1,dive,required"`
	Replace  string  `yaml:"replace"`
	Required bool    `yaml:"required,omitempty"`
	Unless   string  `yaml:"unless,omitempty"`
	Mode     Mode    `yaml:"mode,omitempty" validate:"omitempty,oneof=exact line"`
}

// PatchSet 针对同一目标的一组有序补丁
type PatchSet struct {
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description,omitempty"`
	Target      string   `yaml:"target" validate:"required"`
	Requires    []string `yaml:"requires,omitempty" validate:"dive,required"`
	Provides    []string `yaml:"provides,omitempty" validate:"dive,required"`
	Patches     []Patch  `yaml:"patches,omitempty" validate:"required_without=Content,excluded_with=Content,dive"`
	Content     string   `yaml:"content,omitempty"`
}

// Artifact 待修改的文本
type Artifact struct {
	Path    string
	Content string
}

// Status 补丁执行状态
type Status string

const (
	StatusApplied        Status = "applied"
	StatusAlreadyApplied Status = "already-applied"
	StatusNoOp           Status = "no-op"
	StatusFailed         Status = "failed"
)

// Outcome 单个补丁的执行结果
type Outcome struct {
	Patch   string
	Status  Status
	Matched bool
	Applied bool
	// Anchor 实际命中的候选子串
	Anchor string
}

// SetResult 补丁集的执行结果
type SetResult struct {
	Set      string
	Outcomes []Outcome
	Err      error
}

func (r SetResult) Failed() bool {
	return r.Err != nil
}

// Count 统计指定状态的补丁数量
func (r SetResult) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Result 单个目标文件的执行结果
type Result struct {
	Path     string
	Original string
	Content  string
	Sets     []SetResult
	Modified bool
}

// Failed 是否有补丁集失败
func (r Result) Failed() bool {
	for _, s := range r.Sets {
		if s.Failed() {
			return true
		}
	}
	return false
}

// Err 第一个失败补丁集的错误
func (r Result) Err() error {
	for _, s := range r.Sets {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Count 统计所有补丁集中指定状态的补丁数量
func (r Result) Count(status Status) int {
	n := 0
	for _, s := range r.Sets {
		n += s.Count(status)
	}
	return n
}

func (p Patch) label(index int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", index+1)
}
