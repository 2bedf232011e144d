package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dushixiang/patchkit/internal/catalog"
	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/dushixiang/patchkit/internal/runner"
	"github.com/dushixiang/patchkit/internal/store"
	"go.uber.org/zap"
)

const setName = "pika-custom-template"

func main() {
	os.Exit(run(context.Background(), store.NewOsStore(""), os.Stdout, os.Stderr))
}

// run 在 web/dist/index.html 的 </head> 前插入自定义模板
func run(ctx context.Context, s store.Store, stdout, stderr io.Writer) int {
	c, err := catalog.Builtin(catalog.DefaultVars())
	if err != nil {
		fmt.Fprintf(stderr, "加载补丁失败: %v\n", err)
		return runner.ExitInvalid
	}
	set, ok := c.Get(setName)
	if !ok {
		fmt.Fprintf(stderr, "补丁集不存在: %s\n", setName)
		return runner.ExitInvalid
	}

	rep := runner.New(s, zap.NewNop(), runner.Options{Concurrency: 1}).Run(ctx, []patch.PatchSet{set})
	a := rep.Artifacts[0]
	switch {
	case a.IOErr != nil:
		fmt.Fprintf(stderr, "读写文件失败: %v\n", a.IOErr)
	case a.Failed():
		fmt.Fprintf(stderr, "插入模板失败: %v\n", a.Err())
	case a.Written:
		fmt.Fprintln(stdout, "✓ 成功添加自定义模板到 index.html")
	default:
		fmt.Fprintln(stdout, "模板代码已存在，跳过插入")
	}
	return rep.ExitCode()
}
