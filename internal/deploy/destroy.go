package deploy

// destroy.go 删除网站本地工作目录，支持 --force（跳过确认）和 --dry-run（仅预览）。
// 远程主机上已上传的文件不会被删除。

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/generation"
)

// Destroyer 本地目录清理器
type Destroyer struct {
	Pipeline generation.Pipeline
	Notifier generation.Notifier
	Metrics  generation.Recorder
	Logger   *slog.Logger
	Prompter *config.Prompter
	Output   io.Writer
}

func (d *Destroyer) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.Output, format, args...)
}

// Run 执行清理
func (d *Destroyer) Run(ctx context.Context, website *config.Website, force, dryRun bool) error {
	info, err := os.Stat(website.Directory)
	if errors.Is(err, fs.ErrNotExist) {
		d.printf("本地目录 %s 不存在，无需清理。\n", website.Directory)
		if dryRun {
			return nil
		}
		// 清理本身是幂等的，照常执行以记录 CLEAN 事件
		return d.delete(ctx, website)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s 不是目录", website.Directory)
	}

	d.printf("将要删除网站 %s 的本地目录:\n", website.ID)
	d.printf("  %s\n", website.Directory)

	if dryRun {
		d.printf("\n(dry-run 模式，不会实际删除)\n")
		return nil
	}

	if !force {
		ok, err := d.Prompter.PromptConfirm("\n确认删除？", false)
		if err != nil {
			return err
		}
		if !ok {
			d.printf("已取消。\n")
			return nil
		}
	}

	if err := d.delete(ctx, website); err != nil {
		return err
	}
	d.printf("  ✓ 已删除 %s\n", website.Directory)
	return nil
}

func (d *Destroyer) delete(ctx context.Context, website *config.Website) error {
	runner := &generation.Runner{
		Pipeline: d.Pipeline,
		Notifier: d.Notifier,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
	}
	if err := runner.Delete(ctx, website); err != nil {
		d.printf("  ❌ 清理失败: %v\n", err)
		return err
	}
	return nil
}
