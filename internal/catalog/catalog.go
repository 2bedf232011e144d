package catalog

import (
	"embed"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dushixiang/patchkit/internal/config"
	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

const (
	SourceBuiltin = "builtin"

	varStart = "${"
	varEnd   = "}"
)

var ErrUnknownSet = errors.New("unknown patch set")

// DefaultVars 内置补丁集使用的默认变量
func DefaultVars() map[string]string {
	return map[string]string{
		"lang":        "es",
		"site_name":   "Sellos G",
		"site_title":  "Sistema de Gestión",
		"site_url":    "https://sellos-g.vercel.app",
		"description": "Sistema de gestión de sellos e inventario para empresas. Administra productos, pedidos y clientes de forma eficiente.",
		"keywords":    "sellos, inventario, gestión, pedidos, administración",
	}
}

type document struct {
	PatchSets []patch.PatchSet `yaml:"patchsets" validate:"dive"`
}

// Entry 补丁集及其来源
type Entry struct {
	Set    patch.PatchSet
	Source string
}

// Catalog 按名称索引的补丁集，保持声明顺序
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New 创建空目录
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add 添加补丁集，同名补丁集覆盖已有的定义并保留原位置
func (c *Catalog) Add(source string, sets ...patch.PatchSet) {
	for _, s := range sets {
		if i, ok := c.index[s.Name]; ok {
			c.entries[i] = Entry{Set: s, Source: source}
			continue
		}
		c.index[s.Name] = len(c.entries)
		c.entries = append(c.entries, Entry{Set: s, Source: source})
	}
}

// Entries 所有补丁集
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Names 所有补丁集名称，按字母排序
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Set.Name)
	}
	sort.Strings(names)
	return names
}

// Get 按名称查找
func (c *Catalog) Get(name string) (patch.PatchSet, bool) {
	i, ok := c.index[name]
	if !ok {
		return patch.PatchSet{}, false
	}
	return c.entries[i].Set, true
}

// Select 按给定顺序选出补丁集，names 为空时返回全部
func (c *Catalog) Select(names ...string) ([]patch.PatchSet, error) {
	if len(names) == 0 {
		out := make([]patch.PatchSet, 0, len(c.entries))
		for _, e := range c.entries {
			out = append(out, e.Set)
		}
		return out, nil
	}
	out := make([]patch.PatchSet, 0, len(names))
	for _, name := range names {
		s, ok := c.Get(name)
		if !ok {
			return nil, errors.Errorf("%w: %q", ErrUnknownSet, name)
		}
		out = append(out, s)
	}
	return out, nil
}

// Load 加载内置补丁集和 files 中的补丁集，files 中的同名定义优先
func Load(fsys afero.Fs, files []string, vars map[string]string) (*Catalog, error) {
	merged := DefaultVars()
	for k, v := range vars {
		merged[k] = v
	}

	c, err := Builtin(merged)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		data, err := afero.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Errorf("读取补丁文件失败: %w", err)
		}
		sets, err := Parse(data, file, merged)
		if err != nil {
			return nil, err
		}
		c.Add(file, sets...)
	}
	return c, nil
}

// Builtin 解析内置补丁集，来源记为 builtin/<文件名>
func Builtin(vars map[string]string) (*Catalog, error) {
	files, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	c := New()
	for _, file := range files {
		data, err := builtinFS.ReadFile(file)
		if err != nil {
			return nil, err
		}
		source := path.Join(SourceBuiltin, path.Base(file))
		sets, err := Parse(data, source, vars)
		if err != nil {
			return nil, err
		}
		c.Add(source, sets...)
	}
	return c, nil
}

// Parse 解析一个补丁文件，展开 ${var} 变量并校验
func Parse(data []byte, source string, vars map[string]string) ([]patch.PatchSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("%w: %s: %w", config.ErrInvalid, source, err)
	}
	if err := config.Validate(doc); err != nil {
		return nil, errors.Errorf("%s: %w", source, err)
	}

	seen := make(map[string]bool, len(doc.PatchSets))
	for i := range doc.PatchSets {
		name := doc.PatchSets[i].Name
		if seen[name] {
			return nil, errors.Errorf("%w: %s: 补丁集重复定义 %q", config.ErrInvalid, source, name)
		}
		seen[name] = true
		expandSet(&doc.PatchSets[i], vars)
	}
	return doc.PatchSets, nil
}

func expandSet(s *patch.PatchSet, vars map[string]string) {
	s.Target = expand(s.Target, vars)
	s.Content = expand(s.Content, vars)
	for i := range s.Requires {
		s.Requires[i] = expand(s.Requires[i], vars)
	}
	for i := range s.Provides {
		s.Provides[i] = expand(s.Provides[i], vars)
	}
	for i := range s.Patches {
		p := &s.Patches[i]
		p.Replace = expand(p.Replace, vars)
		p.Unless = expand(p.Unless, vars)
		for j := range p.Find {
			p.Find[j] = expand(p.Find[j], vars)
		}
	}
}

// expand 替换 ${name}，未定义的变量原样保留，避免误伤 JS 模板字符串
func expand(text string, vars map[string]string) string {
	if !strings.Contains(text, varStart) {
		return text
	}
	out, err := fasttemplate.ExecuteFuncStringWithErr(text, varStart, varEnd, func(w io.Writer, tag string) (int, error) {
		if v, ok := vars[tag]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte(varStart + tag + varEnd))
	})
	if err != nil {
		// 缺少结束符时不做替换
		return text
	}
	return out
}
