package deploy

// deploy.go 终端侧的网站生成流程：补全传输密码 → 执行生成状态机 → 把进度事件打印到终端。

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hwuu/sitedeploy/internal/builder"
	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/generation"
	"github.com/hwuu/sitedeploy/internal/logfields"
)

const separator = "─────────────────────────────────────────────────────────────"

// PasswordStore 外部密码来源，由 config.Keyring 实现
type PasswordStore interface {
	Password(websiteID string) (string, error)
}

// Deployer 网站生成器，通过依赖注入支持测试
type Deployer struct {
	Pipeline    generation.Pipeline
	Notifier    generation.Notifier // 额外的事件接收方（日志、历史、NATS）
	Metrics     generation.Recorder
	Logger      *slog.Logger
	Prompter    *config.Prompter
	Credentials config.Credentials
	Keyring     PasswordStore
	Output      io.Writer
}

func (d *Deployer) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.Output, format, args...)
}

// ResolvePassword 依次从网站记录、凭证文件、系统钥匙串、交互输入获取传输密码
func (d *Deployer) ResolvePassword(website *config.Website) error {
	config.ResolvePassword(website, d.Credentials)
	if website.Transfer.Password != "" {
		return nil
	}

	if d.Keyring != nil {
		password, err := d.Keyring.Password(website.ID)
		if err != nil {
			// 无桌面会话的 Linux 上钥匙串通常不可用
			d.logger().Warn("Keyring lookup failed", logfields.WebsiteID(website.ID), logfields.Error(err))
		} else if password != "" {
			website.Transfer.Password = password
			return nil
		}
	}
	if d.Prompter == nil || !d.Prompter.IsInteractive() {
		return nil
	}

	password, err := d.Prompter.PromptTransferPassword(website.ID, &website.Transfer)
	if err != nil {
		return fmt.Errorf("读取密码失败: %w", err)
	}
	website.Transfer.Password = password
	return nil
}

// Run 执行完整生成流程（构建 + 上传）
func (d *Deployer) Run(ctx context.Context, website *config.Website, tpl *config.Template) error {
	if err := d.ResolvePassword(website); err != nil {
		return err
	}

	d.printf("生成网站 %s (%s)\n", website.Name, website.ID)
	if tpl != nil {
		d.printf("模板: %s %s\n", tpl.Name, tpl.Version)
	}

	start := time.Now()
	err := d.withProgress(ctx, func(runner *generation.Runner) error {
		return runner.Generate(ctx, website, tpl)
	})
	if err != nil {
		return err
	}

	d.printSuccess(website, time.Since(start))
	return nil
}

// Build 仅执行构建阶段
func (d *Deployer) Build(ctx context.Context, website *config.Website, tpl *config.Template) error {
	d.printf("构建网站 %s...\n", website.ID)
	if err := d.Pipeline.Build(ctx, d.Logger, website, tpl); err != nil {
		d.printf("  ❌ 构建失败: %v\n", err)
		return err
	}
	d.printf("  ✓ 构建完成: %s\n", website.Directory)
	return nil
}

// Upload 仅执行上传阶段
func (d *Deployer) Upload(ctx context.Context, website *config.Website, outputSubdir string) error {
	if err := d.ResolvePassword(website); err != nil {
		return err
	}

	d.printf("上传网站 %s...\n", website.ID)
	result, err := d.Pipeline.Upload(ctx, d.Logger, website, outputSubdir)
	if err != nil {
		d.printf("  ❌ 上传失败: %v\n", err)
		return err
	}
	d.printf("  ✓ 已上传 %d 个文件 (%d 字节)\n", result.Files, result.Bytes)
	return nil
}

// Progress 单个文件上传完成的回调，供 builder.Builder.OnProgress 使用
func (d *Deployer) Progress(done, total int, entry builder.TransferEntry) {
	d.printf("  ✓ (%d/%d) %s\n", done, total, entry.RemotePath)
}

// withProgress 创建 Runner：阶段进度同步打印到终端，
// 其余接收方（历史、NATS）经事件总线在后台转发，不拖慢构建与上传。
func (d *Deployer) withProgress(ctx context.Context, fn func(runner *generation.Runner) error) error {
	notifier := generation.Notifier(generation.NotifierFunc(d.notifyTerminal))

	var bus *generation.Bus
	done := make(chan struct{})
	if d.Notifier != nil {
		bus = generation.NewBus()
		events, unsubscribe := bus.Subscribe(16)
		defer unsubscribe()

		forwardCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(done)
			for evt := range events {
				if err := d.Notifier.Notify(forwardCtx, evt); err != nil {
					d.logger().Warn("Failed to forward generation event", logfields.Error(err))
				}
			}
		}()
		notifier = generation.MultiNotifier{notifier, bus}
	} else {
		close(done)
	}

	runner := &generation.Runner{
		Pipeline: d.Pipeline,
		Notifier: notifier,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
	}
	err := fn(runner)

	if bus != nil {
		bus.Close()
	}
	<-done
	return err
}

func (d *Deployer) notifyTerminal(ctx context.Context, evt generation.Event) error {
	d.printEvent(evt)
	return nil
}

func (d *Deployer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Deployer) printEvent(evt generation.Event) {
	switch evt.Status {
	case generation.StatusProcessing:
		switch evt.Step {
		case generation.StepBuild:
			d.printf("\n[1/2] 构建网站...\n")
		case generation.StepUpload:
			d.printf("\n[2/2] 上传网站...\n")
		case generation.StepClean:
			d.printf("\n清理本地工作目录...\n")
		}
	case generation.StatusFail:
		d.printf("  ❌ %s 阶段失败: %s\n", stepName(evt.Step), evt.Reason)
	case generation.StatusSuccess:
		d.printf("  ✓ 完成\n")
	}
}

func (d *Deployer) printSuccess(website *config.Website, elapsed time.Duration) {
	d.printf("\n%s\n", separator)
	d.printf("✅ 生成完成！(耗时 %s)\n\n", elapsed.Round(time.Millisecond))
	if website.URL != "" {
		d.printf("访问地址: %s\n", website.URL)
	}
	d.printf("远程目录: %s://%s%s\n", website.Transfer.Protocol, website.Transfer.Host, website.Transfer.Directory)
	d.printf("本地目录: %s\n\n", website.Directory)
	d.printf("提示:\n")
	d.printf("  - 查看状态: sitedeploy status %s\n", website.ID)
	d.printf("  - 清理目录: sitedeploy clean -w <website.yaml>\n")
	d.printf("%s\n", separator)
}

func stepName(step generation.Step) string {
	switch step {
	case generation.StepBuild:
		return "构建"
	case generation.StepUpload:
		return "上传"
	case generation.StepClean:
		return "清理"
	default:
		return string(step)
	}
}
