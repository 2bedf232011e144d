package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dushixiang/patchkit/internal/catalog"
	"github.com/dushixiang/patchkit/internal/config"
	"github.com/dushixiang/patchkit/internal/logger"
	"github.com/dushixiang/patchkit/internal/runner"
	"github.com/dushixiang/patchkit/internal/store"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExitError 携带退出码的错误
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ExitError{Code: runner.ExitInvalid, Err: err}
}

type app struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	configPath  string
	root        string
	logLevel    string
	concurrency int
	vars        []string
	files       []string

	cfg     config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
}

// NewRootCommand 创建根命令，fs 用于读取配置、补丁文件和目标文件
func NewRootCommand(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	a := &app{fs: fs, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "patchkit",
		Short:         "声明式源码补丁工具",
		Long:          "按声明顺序对目标文件执行精确匹配的查找替换，重复执行是安全的。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultFile, "配置文件")
	flags.StringVar(&a.root, "root", "", "目标文件根目录")
	flags.StringVar(&a.logLevel, "log-level", "", "日志级别 debug|info|warn|error")
	flags.IntVar(&a.concurrency, "concurrency", 0, "并行处理的文件数")
	flags.StringArrayVar(&a.vars, "var", nil, "补丁变量 key=value，可重复")
	flags.StringArrayVarP(&a.files, "file", "f", nil, "额外的补丁文件，可重复")

	cmd.AddCommand(
		newRunCommand(a),
		newListCommand(a),
		newPlanCommand(a),
		newWatchCommand(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(a.fs, a.configPath, explicit)
	if err != nil {
		return invalid(err)
	}
	cfg.ApplyEnv()

	if a.root != "" {
		cfg.Root = a.root
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.concurrency > 0 {
		cfg.Concurrency = a.concurrency
	}
	cfg.PatchFiles = append(cfg.PatchFiles, a.files...)
	for _, kv := range a.vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return invalid(errors.Errorf("%w: --var %q 需要 key=value 格式", config.ErrInvalid, kv))
		}
		cfg.Vars[k] = v
	}
	if err := cfg.Validate(); err != nil {
		return invalid(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return invalid(err)
	}

	c, err := catalog.Load(a.fs, cfg.PatchFiles, cfg.Vars)
	if err != nil {
		return invalid(err)
	}

	a.cfg = cfg
	a.logger = log
	a.catalog = c
	return nil
}

func (a *app) newRunner(dryRun bool) *runner.Runner {
	s := store.NewFileStore(a.fs, a.cfg.Root)
	return runner.New(s, a.logger, runner.Options{Concurrency: a.cfg.Concurrency, DryRun: dryRun})
}

// Execute 执行命令并返回退出码
func Execute(ctx context.Context, args []string, fs afero.Fs, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(fs, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return runner.ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(stderr, exitErr.Err)
		}
		return exitErr.Code
	}
	// cobra 自身的参数错误
	fmt.Fprintln(stderr, err)
	return runner.ExitInvalid
}
