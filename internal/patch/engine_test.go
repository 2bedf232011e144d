package patch

import (
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statuses(r Result) []Status {
	var out []Status
	for _, s := range r.Sets {
		for _, o := range s.Outcomes {
			out = append(out, o.Status)
		}
	}
	return out
}

func TestApply_LandmarkSwap(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{
		Name:     "landmark",
		Target:   "App.jsx",
		Provides: []string{"<main>"},
		Patches: []Patch{
			{Find: Matcher{"<div>"}, Replace: "<main>"},
			{Find: Matcher{"</div>"}, Replace: "</main>"},
		},
	}

	first := e.Apply(Artifact{Path: "App.jsx", Content: "<div>X</div>"}, set)
	require.False(t, first.Failed())
	assert.True(t, first.Modified)
	assert.Equal(t, "<main>X</main>", first.Content)
	assert.Equal(t, []Status{StatusApplied, StatusApplied}, statuses(first))

	// 再次执行不应再改动内容
	second := e.Apply(Artifact{Path: "App.jsx", Content: first.Content}, set)
	require.False(t, second.Failed())
	assert.False(t, second.Modified)
	assert.Equal(t, first.Content, second.Content)
	for _, o := range second.Sets[0].Outcomes {
		assert.False(t, o.Applied)
		assert.False(t, o.Matched)
		assert.Equal(t, StatusAlreadyApplied, o.Status)
	}
}

func TestApply_InsertionRerunIsAlreadyApplied(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{
		Name:   "import-b",
		Target: "main.js",
		Patches: []Patch{{
			Find:     Matcher{"import A from 'a'"},
			Replace:  "import A from 'a'\nimport B from 'b'",
			Required: true,
		}},
	}

	first := e.Apply(Artifact{Content: "import A from 'a'"}, set)
	require.NoError(t, first.Err())
	assert.Equal(t, "import A from 'a'\nimport B from 'b'", first.Content)

	second := e.Apply(Artifact{Content: first.Content}, set)
	require.NoError(t, second.Err())
	assert.False(t, second.Modified)
	assert.Equal(t, first.Content, second.Content)
	o := second.Sets[0].Outcomes[0]
	assert.Equal(t, StatusAlreadyApplied, o.Status)
	assert.True(t, o.Matched)
	assert.False(t, o.Applied)
}

func TestApply_OrderSensitivity(t *testing.T) {
	e := NewEngine(nil)
	p1 := Patch{Name: "a-to-b", Find: Matcher{"A"}, Replace: "B"}
	p2 := Patch{Name: "b-to-c", Find: Matcher{"B"}, Replace: "C"}

	forward := e.Apply(Artifact{Content: "xAx"}, PatchSet{Name: "fwd", Patches: []Patch{p1, p2}})
	assert.Equal(t, "xCx", forward.Content)

	backward := e.Apply(Artifact{Content: "xAx"}, PatchSet{Name: "bwd", Patches: []Patch{p2, p1}})
	assert.Equal(t, "xBx", backward.Content)
	assert.Equal(t, []Status{StatusNoOp, StatusApplied}, statuses(backward))
}

func TestApply_RequiredVersusOptional(t *testing.T) {
	e := NewEngine(nil)
	content := "console.log('x')"

	optional := e.Apply(Artifact{Content: content}, PatchSet{
		Name:    "optional",
		Patches: []Patch{{Find: Matcher{"console.error"}, Replace: "console.warn"}},
	})
	require.NoError(t, optional.Err())
	assert.False(t, optional.Modified)
	assert.Equal(t, []Status{StatusNoOp}, statuses(optional))

	required := e.Apply(Artifact{Content: content}, PatchSet{
		Name:    "required",
		Patches: []Patch{{Name: "downgrade", Find: Matcher{"console.error"}, Replace: "console.warn", Required: true}},
	})
	require.True(t, required.Failed())
	assert.True(t, errors.Is(required.Err(), ErrMatchNotFound))
	assert.False(t, required.Modified)
	assert.Equal(t, []Status{StatusFailed}, statuses(required))

	var perr *Error
	require.True(t, errors.As(required.Err(), &perr))
	assert.Equal(t, "required", perr.Set)
	assert.Equal(t, "downgrade", perr.Patch)
}

func TestApply_RequiredMissWithReplacementElsewhere(t *testing.T) {
	e := NewEngine(nil)
	p := Patch{Name: "downgrade", Find: Matcher{"console.error('cfg')"}, Replace: "console.warn", Required: true}
	content := "console.log('cfg')\nconsole.warn('other')"

	res := e.Apply(Artifact{Content: content}, PatchSet{Name: "drifted", Patches: []Patch{p}})
	require.True(t, res.Failed())
	assert.True(t, errors.Is(res.Err(), ErrMatchNotFound))
	assert.Equal(t, []Status{StatusFailed}, statuses(res))

	// 后置标记在执行前已全部存在时，未匹配视为已应用
	res = e.Apply(Artifact{Content: content}, PatchSet{
		Name:     "marked",
		Provides: []string{"console.warn('other')"},
		Patches:  []Patch{p},
	})
	require.NoError(t, res.Err())
	assert.Equal(t, []Status{StatusAlreadyApplied}, statuses(res))

	// unless 标记同样可以声明已应用
	p.Unless = "console.warn('other')"
	res = e.Apply(Artifact{Content: content}, PatchSet{Name: "guarded", Patches: []Patch{p}})
	require.NoError(t, res.Err())
	assert.Equal(t, []Status{StatusAlreadyApplied}, statuses(res))
}

func TestApply_InsertionCheckedAtMatch(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{Name: "head", Patches: []Patch{{Find: Matcher{"</head>"}, Replace: "<x/></head>", Required: true}}}

	// 其他位置已有相同文本不影响第一次出现处的替换
	res := e.Apply(Artifact{Content: "<html><head></head><template><x/></head></template>"}, set)
	require.NoError(t, res.Err())
	assert.Equal(t, "<html><head><x/></head><template><x/></head></template>", res.Content)
	assert.Equal(t, []Status{StatusApplied}, statuses(res))

	again := e.Apply(Artifact{Content: res.Content}, set)
	require.NoError(t, again.Err())
	assert.False(t, again.Modified)
	assert.Equal(t, []Status{StatusAlreadyApplied}, statuses(again))
}

func TestApply_FailedSetRollsBack(t *testing.T) {
	e := NewEngine(nil)
	res := e.Apply(Artifact{Content: "one two"},
		PatchSet{Name: "ok", Patches: []Patch{{Find: Matcher{"one"}, Replace: "1"}}},
		PatchSet{Name: "broken", Patches: []Patch{
			{Find: Matcher{"two"}, Replace: "2"},
			{Find: Matcher{"three"}, Replace: "3", Required: true},
		}},
	)
	require.True(t, res.Failed())
	assert.False(t, res.Modified)
	// broken 的修改被回滚，ok 的修改保留在缓冲区
	assert.Equal(t, "1 two", res.Content)
	assert.False(t, res.Sets[0].Failed())
	assert.True(t, res.Sets[1].Failed())
}

func TestApply_AlternativeAnchors(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{Name: "analytics", Patches: []Patch{{
		Find:    Matcher{"</AppRoutes>", "</AuthProvider>"},
		Replace: "<Analytics />\n</AuthProvider>",
	}}}

	res := e.Apply(Artifact{Content: "<AuthProvider>\n</AuthProvider>"}, set)
	assert.Equal(t, "<AuthProvider>\n<Analytics />\n</AuthProvider>", res.Content)
	assert.Equal(t, "</AuthProvider>", res.Sets[0].Outcomes[0].Anchor)

	again := e.Apply(Artifact{Content: res.Content}, set)
	assert.False(t, again.Modified)
	assert.Equal(t, StatusAlreadyApplied, again.Sets[0].Outcomes[0].Status)
}

func TestApply_Unless(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{Name: "custom", Patches: []Patch{{
		Find:    Matcher{"</head>"},
		Replace: "<script>{{.CustomJS}}</script></head>",
		Unless:  "{{.CustomJS}}",
	}}}

	res := e.Apply(Artifact{Content: "<head>{{.CustomJS}}</head>"}, set)
	assert.False(t, res.Modified)
	assert.Equal(t, StatusAlreadyApplied, res.Sets[0].Outcomes[0].Status)
	assert.False(t, res.Sets[0].Outcomes[0].Matched)
}

func TestApply_Conditions(t *testing.T) {
	e := NewEngine(nil)

	res := e.Apply(Artifact{Content: "<div>"}, PatchSet{
		Name:     "needs-analytics",
		Requires: []string{"<Analytics />"},
		Patches:  []Patch{{Find: Matcher{"<div>"}, Replace: "<main>"}},
	})
	assert.True(t, errors.Is(res.Err(), ErrPreconditionMissing))
	assert.Empty(t, res.Sets[0].Outcomes)
	assert.Equal(t, "<div>", res.Content)

	res = e.Apply(Artifact{Content: "<div>"}, PatchSet{
		Name:     "promises-main",
		Provides: []string{"<main>"},
		Patches:  []Patch{{Find: Matcher{"<span>"}, Replace: "<main>"}},
	})
	assert.True(t, errors.Is(res.Err(), ErrPostconditionMissing))
	assert.False(t, res.Modified)
}

func TestApply_Content(t *testing.T) {
	e := NewEngine(nil)
	set := PatchSet{Name: "vite", Content: "export default {}\n"}

	res := e.Apply(Artifact{Content: "old"}, set)
	assert.True(t, res.Modified)
	assert.Equal(t, "export default {}\n", res.Content)

	res = e.Apply(Artifact{Content: res.Content}, set)
	assert.False(t, res.Modified)
	assert.Equal(t, []Status{StatusAlreadyApplied}, statuses(res))
}

func TestApply_LineMode(t *testing.T) {
	e := NewEngine(nil)
	content := "function f() {\n\t\tconsole.error('x', err);\n}\n"
	set := PatchSet{Name: "console", Patches: []Patch{{
		Find:    Matcher{"console.error('x', err);"},
		Replace: "if (import.meta.env.DEV) console.warn('x', err);",
		Mode:    ModeLine,
	}}}

	res := e.Apply(Artifact{Content: content}, set)
	assert.Equal(t, "function f() {\n\t\tif (import.meta.env.DEV) console.warn('x', err);\n}\n", res.Content)

	// 缩进变化不影响匹配
	reindented := "function f() {\n    console.error('x', err);   \n}\n"
	res = e.Apply(Artifact{Content: reindented}, set)
	assert.Equal(t, "function f() {\n    if (import.meta.env.DEV) console.warn('x', err);   \n}\n", res.Content)
}
