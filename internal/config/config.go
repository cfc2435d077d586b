package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/filemover/internal/app/mover"
	"github.com/John-Robertt/filemover/internal/infra/fsx"
	"github.com/John-Robertt/filemover/internal/infra/logx"
	"github.com/John-Robertt/filemover/internal/infra/pubsub"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultInterval 是两次列目录之间的最长等待。
	DefaultInterval = mover.DefaultInterval
	// DefaultRedisChannel 是 Redis 观察者发布状态消息的频道。
	DefaultRedisChannel = pubsub.DefaultChannel
)

// DefaultNames 是未指定 --config 时在 cwd 下依次查找的文件名。
var DefaultNames = []string{"filemover.yaml", "filemover.yml", "filemover.toml"}

// CLIArgs 保存 CLI 暴露的参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --watch=false 必须能覆盖配置文件里的 watch: true。
type CLIArgs struct {
	ConfigPath string

	// Source/Destination 来自位置参数；空串表示未提供。
	Source      string
	Destination string

	Interval    time.Duration
	IntervalSet bool

	Mode    string
	ModeSet bool

	Watch    bool
	WatchSet bool

	LogLevel    string
	LogLevelSet bool

	Report    string
	ReportSet bool

	RedisURL    string
	RedisURLSet bool

	RedisChannel    string
	RedisChannelSet bool

	NoColor bool
}

// RegisterFlags 在 fs 上注册全部 CLI 参数。解析完成后需要调用 MarkChanged。
func (a *CLIArgs) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&a.ConfigPath, "config", "c", "", "配置文件路径（yaml/toml）")
	fs.DurationVar(&a.Interval, "interval", DefaultInterval, "空闲时两次轮询之间的间隔")
	fs.StringVar(&a.Mode, "mode", string(fsx.ModeCopy), "移动方式：copy 或 rename")
	fs.BoolVar(&a.Watch, "watch", true, "用文件系统事件提前唤醒轮询")
	fs.StringVar(&a.LogLevel, "log-level", logx.DefaultLevel, "日志级别：debug/info/warn/error")
	fs.StringVar(&a.Report, "report", "", "会话结束时写出 JSON 报告的路径")
	fs.StringVar(&a.RedisURL, "redis-url", "", "把状态消息发布到 Redis（redis://...）")
	fs.StringVar(&a.RedisChannel, "redis-channel", DefaultRedisChannel, "Redis 发布频道")
	fs.BoolVar(&a.NoColor, "no-color", false, "关闭彩色输出")
}

// MarkChanged 根据 fs 记录哪些参数被显式指定。
func (a *CLIArgs) MarkChanged(fs *flag.FlagSet) {
	a.IntervalSet = fs.Changed("interval")
	a.ModeSet = fs.Changed("mode")
	a.WatchSet = fs.Changed("watch")
	a.LogLevelSet = fs.Changed("log-level")
	a.ReportSet = fs.Changed("report")
	a.RedisURLSet = fs.Changed("redis-url")
	a.RedisChannelSet = fs.Changed("redis-channel")
}

// FileConfig 对应 filemover.yaml / filemover.toml 的解析结构。
type FileConfig struct {
	Source      string       `yaml:"source" toml:"source"`
	Destination string       `yaml:"destination" toml:"destination"`
	Interval    string       `yaml:"interval" toml:"interval"`
	Mode        string       `yaml:"mode" toml:"mode"`
	Watch       *bool        `yaml:"watch" toml:"watch"`
	LogLevel    string       `yaml:"log_level" toml:"log_level"`
	Report      string       `yaml:"report" toml:"report"`
	Redis       *RedisConfig `yaml:"redis" toml:"redis"`
}

type RedisConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Channel string `yaml:"channel" toml:"channel"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；没有读取任何文件时为空。
	ConfigPath string

	// Source/Destination 为空表示未设置（TUI 允许稍后再填）。
	Source      string
	Destination string

	Interval time.Duration
	Mode     fsx.Mode
	Watch    bool
	LogLevel string
	Report   string

	RedisURL     string
	RedisChannel string
	NoColor      bool
}

// RedisOptions 把 RedisURL 解析为 go-redis 连接参数；未配置时返回 nil。
func (c EffectiveConfig) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	return redis.ParseURL(c.RedisURL)
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，按扩展名选择 toml 或 yaml
// 2) 否则依次尝试 <cwd>/filemover.yaml、filemover.yml、filemover.toml（可选）
//
// 覆盖优先级（固定）：CLI 显式指定 > 配置文件 > 默认值。
// 配置文件中的相对路径以配置文件所在目录为基准；CLI 的相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range DefaultNames {
			p := filepath.Join(cwdAbs, name)
			f, exists, err := readFileConfig(p)
			if err != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
			}
			if exists {
				cfgPath, fc = p, f
				break
			}
		}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	cfgDir := cwdAbs
	if cfgPath != "" {
		cfgDir = filepath.Dir(cfgPath)
	}
	pick := func(cliVal, fileVal string) string {
		if strings.TrimSpace(cliVal) != "" {
			return absCleanFrom(cwdAbs, cliVal)
		}
		return absCleanFrom(cfgDir, fileVal)
	}
	source := pick(cli.Source, fc.Source)
	destination := pick(cli.Destination, fc.Destination)

	// interval：CLI > config > 默认
	interval := DefaultInterval
	if cli.IntervalSet {
		interval = cli.Interval
	} else if s := strings.TrimSpace(fc.Interval); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return invalid(fmt.Errorf("interval 无效：%w", err))
		}
		interval = d
	}
	if interval <= 0 {
		return invalid(fmt.Errorf("interval 必须大于 0，实际是 %s", interval))
	}

	modeStr := fc.Mode
	if cli.ModeSet {
		modeStr = cli.Mode
	}
	mode, err := fsx.ParseMode(modeStr)
	if err != nil {
		return invalid(err)
	}

	// watch：CLI --watch/--watch=false > config > 默认 true
	watch := true
	if cli.WatchSet {
		watch = cli.Watch
	} else if fc.Watch != nil {
		watch = *fc.Watch
	}

	logLevel := logx.DefaultLevel
	if cli.LogLevelSet {
		logLevel = cli.LogLevel
	} else if strings.TrimSpace(fc.LogLevel) != "" {
		logLevel = fc.LogLevel
	}
	logLevel = strings.ToLower(strings.TrimSpace(logLevel))
	if _, err := logx.ParseLevel(logLevel); err != nil {
		return invalid(err)
	}

	var report string
	if cli.ReportSet {
		report = absCleanFrom(cwdAbs, cli.Report)
	} else {
		report = absCleanFrom(cfgDir, fc.Report)
	}

	redisURL, redisChannel := "", DefaultRedisChannel
	if fc.Redis != nil {
		redisURL = strings.TrimSpace(fc.Redis.URL)
		if c := strings.TrimSpace(fc.Redis.Channel); c != "" {
			redisChannel = c
		}
	}
	if cli.RedisURLSet {
		redisURL = strings.TrimSpace(cli.RedisURL)
	}
	if cli.RedisChannelSet {
		redisChannel = strings.TrimSpace(cli.RedisChannel)
	}
	if redisURL != "" {
		if _, err := redis.ParseURL(redisURL); err != nil {
			return invalid(fmt.Errorf("redis.url 无效：%w", err))
		}
		if redisChannel == "" {
			return invalid(fmt.Errorf("redis.channel 不能为空"))
		}
	}

	return EffectiveConfig{
		ConfigPath:   cfgPath,
		Source:       source,
		Destination:  destination,
		Interval:     interval,
		Mode:         mode,
		Watch:        watch,
		LogLevel:     logLevel,
		Report:       report,
		RedisURL:     redisURL,
		RedisChannel: redisChannel,
		NoColor:      cli.NoColor,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；空白输入返回空串。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件；.toml 按 TOML 解析，其余按 YAML。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。未知字段视为错误。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(b), &fc)
		if err != nil {
			return FileConfig{}, true, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return FileConfig{}, true, fmt.Errorf("未知字段：%s", strings.Join(keys, ", "))
		}
		return fc, true, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// 空文件等价于全部使用默认值。
			return FileConfig{}, true, nil
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
