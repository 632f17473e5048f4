package main

// app.go 组装命令运行所需的依赖：配置、日志、历史库、NATS、指标。

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hwuu/sitedeploy/internal/builder"
	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/generation"
)

// globalOptions 全局参数，命令行优先于环境变量
type globalOptions struct {
	envFile     string
	logLevel    string
	logFormat   string
	historyDB   string
	natsURL     string
	metricsFile string
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.envFile, "env-file", "", "从指定文件加载环境变量（默认尝试 ./.env）")
	flags.StringVar(&o.logLevel, "log-level", "", "日志级别 debug|info|warn|error（默认 $SITEDEPLOY_LOG_LEVEL 或 info）")
	flags.StringVar(&o.logFormat, "log-format", "", "日志格式 text|json（默认 $SITEDEPLOY_LOG_FORMAT 或 text）")
	flags.StringVar(&o.historyDB, "history-db", "", "生成历史 SQLite 文件，off 表示不记录")
	flags.StringVar(&o.natsURL, "nats-url", "", "发布进度事件的 NATS 地址")
	flags.StringVar(&o.metricsFile, "metrics-textfile", "", "运行结束后写出 Prometheus textfile 指标")
}

// app 单次命令执行的依赖集合
type app struct {
	settings  *config.Settings
	logger    *slog.Logger
	out       io.Writer
	history   *generation.HistoryStore
	nats      *generation.NATSNotifier
	natsClose func()
	metrics   *generation.PrometheusRecorder
	metricsTo string
}

// newApp 加载配置并打开可选的历史库与 NATS 连接
func (o *globalOptions) newApp(cmd *cobra.Command, withSinks bool) (*app, error) {
	settings, err := config.LoadSettings(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		settings.LogLevel = strings.ToLower(o.logLevel)
	}
	if o.logFormat != "" {
		settings.LogFormat = strings.ToLower(o.logFormat)
	}
	if o.historyDB != "" {
		settings.HistoryDB = config.HistoryPath(o.historyDB)
	}
	if o.natsURL != "" {
		settings.NATSURL = o.natsURL
	}

	logger, err := newLogger(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{
		settings:  settings,
		logger:    logger,
		out:       cmd.OutOrStdout(),
		metrics:   generation.NewPrometheusRecorder(nil),
		metricsTo: o.metricsFile,
	}

	if settings.HistoryDB != "" {
		a.history, err = generation.OpenHistory(settings.HistoryDB)
		if err != nil {
			return nil, err
		}
	}

	if withSinks && settings.NATSURL != "" {
		a.nats, a.natsClose, err = generation.DialNATS(settings.NATSURL, settings.NATSSubject)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Debug("NATS publisher connected", slog.String("url", settings.NATSURL), slog.String("subject", settings.NATSSubject))
	}

	return a, nil
}

// notifier 汇总日志、历史与 NATS 三类事件接收方
func (a *app) notifier() generation.Notifier {
	n := generation.MultiNotifier{generation.LogNotifier{Logger: a.logger}}
	if a.history != nil {
		n = append(n, a.history)
	}
	if a.nats != nil {
		n = append(n, a.nats)
	}
	return n
}

// builder 创建构建编排器，progress 非 nil 时逐文件回调上传进度
func (a *app) builder(progress builder.ProgressFunc) *builder.Builder {
	b := builder.New()
	b.OnProgress = progress
	b.DialTimeout = a.settings.DialTimeout
	return b
}

// Close 写出指标并释放连接
func (a *app) Close() error {
	var errs []error
	if a.metricsTo != "" {
		if err := a.metrics.WriteTextfile(a.metricsTo); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if a.natsClose != nil {
		a.natsClose()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadWebsite 加载网站记录并补全默认值；templatePath 为空时返回 nil 模板
func (a *app) loadWebsite(websitePath, templatePath string) (*config.Website, *config.Template, error) {
	website, err := config.LoadWebsite(websitePath)
	if err != nil {
		return nil, nil, err
	}
	website.ApplyDefaults(a.settings)

	if templatePath == "" {
		return website, nil, nil
	}
	tpl, err := config.LoadTemplate(templatePath)
	if err != nil {
		return nil, nil, err
	}
	return website, tpl, nil
}

// newLogger 按级别与格式创建 slog 日志
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalidConfig, level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log format %q (text or json)", config.ErrInvalidConfig, format)
	}
}

// withApp 创建 app 并在 fn 返回后释放
func withApp(cmd *cobra.Command, opts *globalOptions, withSinks bool, fn func(a *app) error) (err error) {
	a, err := opts.newApp(cmd, withSinks)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}
