// Package builder 编排网站的构建、上传与清理：
// 解压模板骨架 → 调用 npm/yarn 构建 → 遍历产物 → 通过 FTP/SFTP 逐个上传。
package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/logfields"
	"github.com/hwuu/sitedeploy/internal/remote"
	"github.com/hwuu/sitedeploy/internal/walk"
)

// ClientFactory 按连接参数创建远程传输客户端的工厂函数
type ClientFactory func(cfg remote.Config) (remote.Client, error)

// ExtractFunc 解压模板压缩包的函数
type ExtractFunc func(archive, dest string) error

// ProgressFunc 每上传完一个文件回调一次
type ProgressFunc func(done, total int, entry TransferEntry)

// Builder 构建编排器，通过依赖注入支持测试
type Builder struct {
	NewClient   ClientFactory
	Runner      CommandRunner
	Extract     ExtractFunc
	OnProgress  ProgressFunc
	DialTimeout time.Duration
}

// New 创建使用真实实现的 Builder
func New() *Builder {
	return &Builder{
		NewClient: remote.New,
		Runner:    ExecRunner{},
		Extract:   ExtractArchive,
	}
}

// TransferEntry 一个待上传文件：本地绝对路径 → 远程路径
type TransferEntry struct {
	LocalPath  string
	RemotePath string
	Size       int64
}

// UploadResult 上传汇总
type UploadResult struct {
	Files int
	Bytes int64
}

// Build 准备网站目录并（在有模板时）执行构建。
// 目录原本不存在时才解压模板；只要有模板就执行构建命令。
func (b *Builder) Build(ctx context.Context, logger *slog.Logger, website *config.Website, tpl *config.Template) error {
	logger = stepLogger(logger, website, "build")
	start := time.Now()

	dir := website.Directory
	if dir == "" {
		return ErrNoDirectory
	}

	priorExisted, err := pathExists(dir)
	if err != nil {
		logger.Error("Website building failed", logfields.Error(err))
		return err
	}

	if tpl != nil {
		logger.Debug(fmt.Sprintf("Building website with template %s...", tpl.Name))
	} else {
		logger.Debug("Building website without template...")
	}

	if !priorExisted {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("Website building failed", logfields.Error(err))
			return fmt.Errorf("failed to create website directory %s: %w", dir, err)
		}
	}

	if tpl != nil {
		if !priorExisted {
			if err := b.extractFunc()(tpl.Archive, dir); err != nil {
				logger.Error("Website building failed", logfields.Error(err))
				return err
			}
			logger.Debug("Template extracted", logfields.Path(dir))
		}

		if err := b.runBuild(ctx, logger, website, tpl); err != nil {
			logger.Error("Website building failed", logfields.Error(err))
			return err
		}
	}

	logger.Debug("Website has been built", logfields.Duration(time.Since(start)))
	return nil
}

func (b *Builder) runBuild(ctx context.Context, logger *slog.Logger, website *config.Website, tpl *config.Template) error {
	cmd, err := newBuildCommand(website, tpl)
	if err != nil {
		return err
	}

	logger.Debug("Running build command", logfields.Command(cmd.String()))
	stdout, stderr, err := b.runner().Run(ctx, cmd)
	if len(stdout) > 0 {
		logger.Debug(string(stdout))
	}
	if len(stderr) > 0 {
		logger.Debug(string(stderr))
	}
	if err != nil {
		return processError(cmd, stderr, err)
	}
	return nil
}

// Upload 将 <网站目录>/<outputSubdir> 下的所有文件按顺序上传到远程根目录下。
// 连接在任何退出路径上都只关闭一次；失败时已上传的文件保留在远程。
func (b *Builder) Upload(ctx context.Context, logger *slog.Logger, website *config.Website, outputSubdir string) (result *UploadResult, err error) {
	logger = stepLogger(logger, website, "upload")
	start := time.Now()
	defer func() {
		if err != nil {
			logger.Error("Website uploading failed", logfields.Error(err))
		}
	}()

	if website.Directory == "" {
		return nil, ErrNoDirectory
	}

	outputRoot := filepath.Join(website.Directory, outputSubdir)
	entries, err := TransferEntries(outputRoot, website.Transfer.Directory)
	if err != nil {
		return nil, err
	}

	cfg := remoteConfig(website, b.DialTimeout)
	logger.Debug("Uploading website...",
		logfields.Files(len(entries)),
		logfields.Protocol(string(cfg.Protocol)),
		logfields.Host(cfg.Addr()))

	client, err := b.clientFactory()(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := client.Close()
		// 连接未建立时 Close 报告未连接，不覆盖连接错误
		if closeErr == nil || errors.Is(closeErr, remote.ErrNotConnected) {
			return
		}
		if err == nil {
			err = closeErr
		} else {
			logger.Warn("Failed to close connection", logfields.Error(closeErr))
		}
	}()
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	result = &UploadResult{}
	ensured := make(map[string]bool)
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dir := path.Dir(entry.RemotePath)
		if !ensured[dir] {
			if err := client.Mkdir(dir, true); err != nil {
				return result, err
			}
			ensured[dir] = true
		}
		if err := client.Put(entry.LocalPath, entry.RemotePath); err != nil {
			return result, err
		}

		result.Files++
		result.Bytes += entry.Size
		logger.Debug("File uploaded", logfields.RemotePath(entry.RemotePath))
		if b.OnProgress != nil {
			b.OnProgress(i+1, len(entries), entry)
		}
	}

	logger.Debug("Website has been uploaded",
		logfields.Files(result.Files),
		logfields.Duration(time.Since(start)))
	return result, nil
}

// Clean 删除网站本地工作目录，目录不存在时不报错
func (b *Builder) Clean(ctx context.Context, logger *slog.Logger, website *config.Website) error {
	logger = stepLogger(logger, website, "clean")
	start := time.Now()

	if website.Directory == "" {
		return ErrNoDirectory
	}

	logger.Debug("Cleaning website...", logfields.Path(website.Directory))
	if err := os.RemoveAll(website.Directory); err != nil {
		logger.Error("Website cleaning failed", logfields.Error(err))
		return fmt.Errorf("failed to remove %s: %w", website.Directory, err)
	}

	logger.Debug("Website has been cleaned", logfields.Duration(time.Since(start)))
	return nil
}

// TransferEntries 遍历 outputRoot，把每个文件映射到 remoteBase 下的同名相对路径（POSIX 分隔符，.. 已折叠）。
// 结果按远程路径排序。
func TransferEntries(outputRoot, remoteBase string) ([]TransferEntry, error) {
	root, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, err
	}

	files, err := walk.Files(root)
	if err != nil {
		return nil, err
	}

	entries := make([]TransferEntry, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(file)
		if err != nil {
			return nil, &walk.IOError{Path: file, Err: err}
		}
		entries = append(entries, TransferEntry{
			LocalPath:  file,
			RemotePath: RemotePath(remoteBase, rel),
			Size:       info.Size(),
		})
	}

	slices.SortFunc(entries, func(a, b TransferEntry) int {
		return strings.Compare(a.RemotePath, b.RemotePath)
	})
	return entries, nil
}

// RemotePath 将本地相对路径拼接到远程根目录下
func RemotePath(remoteBase, rel string) string {
	rel = strings.ReplaceAll(rel, `\`, "/")
	return path.Join(filepath.ToSlash(remoteBase), rel)
}

func remoteConfig(website *config.Website, timeout time.Duration) remote.Config {
	t := website.Transfer
	return remote.Config{
		Protocol:    remote.Protocol(t.Protocol),
		Host:        t.Host,
		Port:        t.Port,
		User:        t.User,
		Password:    t.Password,
		HostKeyFile: t.HostKeyFile,
		Timeout:     timeout,
	}
}

func stepLogger(logger *slog.Logger, website *config.Website, step string) *slog.Logger {
	return logfields.Website(logger, website.ID, website.Name).With(logfields.Step(step))
}

func pathExists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (b *Builder) clientFactory() ClientFactory {
	if b.NewClient != nil {
		return b.NewClient
	}
	return remote.New
}

func (b *Builder) runner() CommandRunner {
	if b.Runner != nil {
		return b.Runner
	}
	return ExecRunner{}
}

func (b *Builder) extractFunc() ExtractFunc {
	if b.Extract != nil {
		return b.Extract
	}
	return ExtractArchive
}
