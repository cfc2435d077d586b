package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/filemover/internal/app/mover"
	"github.com/John-Robertt/filemover/internal/config"
	"github.com/John-Robertt/filemover/internal/domain"
	"github.com/John-Robertt/filemover/internal/infra/fsx"
	"github.com/John-Robertt/filemover/internal/infra/logx"
	"github.com/John-Robertt/filemover/internal/infra/pubsub"
	"github.com/John-Robertt/filemover/internal/infra/watch"
)

var version = "dev"

// 退出码：0 正常停止；1 移动循环致命错误或运行期失败；2 参数/配置错误。
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// 测试替换点：捕获信号的方式。
var (
	notifySignals = func(ch chan<- os.Signal) { signal.Notify(ch, os.Interrupt, syscall.SIGTERM) }
	stopSignals   = func(ch chan<- os.Signal) { signal.Stop(ch) }
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 让子命令把退出码带回 execute。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{code: exitUsage, err: err} }
func failureErr(err error) error { return &exitError{code: exitFailure, err: err} }

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "错误：%v\n", ee.err)
		}
		return ee.code
	}
	// cobra 自身的参数/flag 解析错误。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cli config.CLIArgs

	root := &cobra.Command{
		Use:   "filemover [flags] SOURCE DESTINATION",
		Short: "持续把源目录中的文件移动到目标目录",
		Long: `filemover 轮询 SOURCE（不递归），把其中的普通文件逐个移动到 DESTINATION，
直到收到 SIGINT/SIGTERM。每移动一个文件输出一行 "N File Moved"。`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.MarkChanged(cmd.Flags())
			setPositional(&cli, args)
			eff, err := loadConfig(cli)
			if err != nil {
				return err
			}
			if eff.Source == "" || eff.Destination == "" {
				return usageErr(errors.New("需要 SOURCE 与 DESTINATION（位置参数或配置文件）"))
			}
			return runCLI(cmd.Context(), eff, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	cli.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newTUICmd(&cli, stderr))
	return root
}

func setPositional(cli *config.CLIArgs, args []string) {
	if len(args) > 0 {
		cli.Source = args[0]
	}
	if len(args) > 1 {
		cli.Destination = args[1]
	}
}

func loadConfig(cli config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, failureErr(fmt.Errorf("读取当前目录失败：%w", err))
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return config.EffectiveConfig{}, usageErr(err)
	}
	if eff.NoColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	return eff, nil
}

// app 持有一次运行所需的 engine 与需要在退出时释放的资源。
type app struct {
	eng     *mover.Engine
	logger  *zap.Logger
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newApp 按最终配置组装 engine：日志、fsnotify 唤醒、可选的 Redis 发布。
// 路径不存在时返回退出码为 2 的错误。
func newApp(ctx context.Context, eff config.EffectiveConfig, logger *zap.Logger) (*app, error) {
	opts := []mover.Option{
		mover.WithInterval(eff.Interval),
		mover.WithMode(eff.Mode),
		mover.WithLogger(logger),
	}
	if eff.Watch {
		opts = append(opts, mover.WithWatch(func(dir string, l *zap.Logger) (mover.Waker, error) {
			return watch.New(dir, l)
		}))
	}

	eng, err := mover.New(eff.Source, eff.Destination, opts...)
	if err != nil {
		if fsx.IsPathNotFound(err) {
			return nil, usageErr(err)
		}
		return nil, failureErr(err)
	}
	a := &app{eng: eng, logger: logger}

	if ropts, err := eff.RedisOptions(); err != nil {
		return nil, usageErr(err)
	} else if ropts != nil {
		dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rdb, err := pubsub.Dial(dialCtx, ropts)
		cancel()
		if err != nil {
			return nil, failureErr(fmt.Errorf("无法连接 Redis %s：%w", ropts.Addr, err))
		}
		a.closers = append(a.closers, rdb.Close)
		eng.Attach(pubsub.NewRedisObserver(rdb, eff.RedisChannel, logger))
		logger.Info("publishing status to redis", zap.String("addr", ropts.Addr), zap.String("channel", eff.RedisChannel))
	}
	return a, nil
}

func runCLI(ctx context.Context, eff config.EffectiveConfig, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logx.New(eff.LogLevel, stderr)
	if err != nil {
		return usageErr(err)
	}

	a, err := newApp(ctx, eff, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	status := newStatusLine(stdout, isTTY(stdout), !color.NoColor)
	a.eng.Attach(status)

	sigCh := make(chan os.Signal, 2)
	notifySignals(sigCh)
	defer stopSignals(sigCh)
	stopWatch := watchShutdownSignals(logger, shutdownFunc(a.eng, cancel), sigCh)
	defer stopWatch()

	runErr := a.eng.Run(ctx)
	status.Finish()

	r := a.eng.Report()
	fmt.Fprintf(stdout, "完成：moved=%d failed=%d\n", r.Summary.Moved, r.Summary.Failed)

	if eff.Report != "" {
		if err := writeReportFile(eff.Report, r); err != nil {
			return failureErr(fmt.Errorf("写入报告失败：%w", err))
		}
		fmt.Fprintf(stdout, "report: %s\n", eff.Report)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return failureErr(runErr)
	}
	return nil
}

// shutdownFunc 返回信号触发的停止动作：循环在跑时调用 Stop；
// 还没进入 Running（信号早于 Run）时取消 ctx，Run 随后以 context.Canceled 返回。
func shutdownFunc(eng *mover.Engine, cancel context.CancelFunc) func() bool {
	return func() bool {
		if !eng.Stop() {
			cancel()
		}
		return true
	}
}

// watchShutdownSignals 把信号转换为 stop()，直到某次 stop() 返回 true；之后的信号只记录一次日志。
func watchShutdownSignals(logger *zap.Logger, stop func() bool, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	done := make(chan struct{})
	stopped := false
	loggedRepeat := false

	go func() {
		for {
			select {
			case <-done:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				name := ""
				if sig != nil {
					name = sig.String()
				}
				if !stopped {
					logger.Info("shutdown signal received", zap.String("signal", name))
					stopped = stop()
					continue
				}
				if !loggedRepeat {
					loggedRepeat = true
					logger.Info("shutdown already in progress; ignoring signal", zap.String("signal", name))
				}
			}
		}
	}()

	return func() {
		close(done)
	}
}

func writeReportFile(path string, r domain.SessionReport) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
