package config

import (
	"os"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "patchkit.yaml"

// Config 运行配置
type Config struct {
	// Root 目标文件的根目录，补丁集中的 target 相对于它
	Root        string            `yaml:"root"`
	Concurrency int               `yaml:"concurrency" validate:"gte=1,lte=64"`
	PatchFiles  []string          `yaml:"patch_files" validate:"dive,required"`
	Vars        map[string]string `yaml:"vars"`
	Log         LogConfig         `yaml:"log"`
}

// LogConfig 日志配置，filename 为空时只输出到 stderr
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Root:        ".",
		Concurrency: 4,
		Vars:        map[string]string{},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load 读取配置文件。explicit 为 false 且文件不存在时返回默认配置。
func Load(fs afero.Fs, path string, explicit bool) (Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, errors.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Errorf("%w: 解析配置文件失败: %w", ErrInvalid, err)
	}
	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if root := os.Getenv("PATCHKIT_ROOT"); root != "" {
		c.Root = root
	}
	if level := os.Getenv("PATCHKIT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if raw := os.Getenv("PATCHKIT_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			c.Concurrency = n
		}
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return Validate(c)
}
