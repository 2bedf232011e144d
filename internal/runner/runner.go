package runner

import (
	"context"

	"github.com/dushixiang/patchkit/internal/patch"
	"github.com/dushixiang/patchkit/internal/store"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitIO      = 2
	ExitInvalid = 3
)

// ArtifactResult 单个目标文件的运行结果
type ArtifactResult struct {
	patch.Result
	// Written 是否已写回存储
	Written bool
	// IOErr 读写错误，补丁失败记录在 Result.Sets 中
	IOErr error
}

// Failed 读写失败或有补丁集失败
func (r ArtifactResult) Failed() bool {
	return r.IOErr != nil || r.Result.Failed()
}

// Report 一次运行的结果，顺序与目标首次出现的顺序一致
type Report struct {
	RunID     string
	DryRun    bool
	Artifacts []ArtifactResult
}

// ExitCode 0 成功，1 补丁失败，2 读写失败
func (r Report) ExitCode() int {
	code := ExitOK
	for _, a := range r.Artifacts {
		switch {
		case a.IOErr != nil:
			return ExitIO
		case a.Result.Failed():
			code = ExitFailed
		}
	}
	return code
}

// Options 运行选项
type Options struct {
	Concurrency int
	DryRun      bool
}

// Runner 读取目标、应用补丁集、按需写回
type Runner struct {
	store  store.Store
	engine *patch.Engine
	logger *zap.Logger
	opts   Options
}

// New 创建 Runner
func New(s store.Store, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Runner{
		store:  s,
		engine: patch.NewEngine(logger),
		logger: logger,
		opts:   opts,
	}
}

// Run 按目标分组执行补丁集。同一目标的补丁集保持声明顺序，不同目标并行。
func (r *Runner) Run(ctx context.Context, sets []patch.PatchSet) Report {
	report := Report{RunID: uuid.NewString(), DryRun: r.opts.DryRun}
	log := r.logger.With(zap.String("run_id", report.RunID))

	groups := groupByTarget(sets)
	report.Artifacts = make([]ArtifactResult, len(groups))

	p := pool.New().WithMaxGoroutines(r.opts.Concurrency)
	for i, g := range groups {
		i, g := i, g
		p.Go(func() {
			report.Artifacts[i] = r.runArtifact(ctx, log, g.target, g.sets)
		})
	}
	p.Wait()

	return report
}

func (r *Runner) runArtifact(ctx context.Context, log *zap.Logger, target string, sets []patch.PatchSet) ArtifactResult {
	res := ArtifactResult{Result: patch.Result{Path: target}}
	log = log.With(zap.String("path", target))

	if err := ctx.Err(); err != nil {
		res.IOErr = errors.Wrap(err, 0)
		return res
	}

	if locker, ok := r.store.(store.Locker); ok {
		unlock := locker.Lock(target)
		defer unlock()
	}

	content, err := r.store.Read(target)
	if err != nil {
		log.Error("读取文件失败", zap.Error(err))
		log.Debug("错误堆栈", zap.String("stack", errorStack(err)))
		res.IOErr = err
		return res
	}

	res.Result = r.engine.Apply(patch.Artifact{Path: target, Content: content}, sets...)
	if !res.Modified {
		log.Info("内容无变化，跳过写入", zap.Bool("failed", res.Result.Failed()))
		return res
	}
	if r.opts.DryRun {
		log.Info("dry-run，跳过写入")
		return res
	}

	if err := r.store.Write(target, res.Content); err != nil {
		log.Error("写入文件失败", zap.Error(err))
		log.Debug("错误堆栈", zap.String("stack", errorStack(err)))
		res.IOErr = err
		return res
	}
	res.Written = true
	log.Info("补丁已写入", zap.Int("applied", res.Count(patch.StatusApplied)))
	return res
}

type group struct {
	target string
	sets   []patch.PatchSet
}

func groupByTarget(sets []patch.PatchSet) []group {
	index := make(map[string]int)
	var groups []group
	for _, s := range sets {
		i, ok := index[s.Target]
		if !ok {
			i = len(groups)
			index[s.Target] = i
			groups = append(groups, group{target: s.Target})
		}
		groups[i].sets = append(groups[i].sets, s)
	}
	return groups
}

func errorStack(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.ErrorStack()
	}
	return err.Error()
}
