package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hwuu/sitedeploy/internal/config"
)

// WebsiteEnvKey 构建脚本通过该环境变量读取序列化后的网站记录
const WebsiteEnvKey = "WEBSITE"

// Command 待执行的外部构建命令
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandRunner 执行外部命令，支持 mock 测试
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (stdout, stderr []byte, err error)
}

// ExecRunner 基于 os/exec 的真实实现。没有内部超时，外部工具挂起则一直等待；
// ctx 取消时进程被终止。
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// BuildCommand 按 packager 构造构建命令：NPM → npm run <script>，YARN → yarn <script>
func BuildCommand(tpl *config.Template) (string, []string, error) {
	switch tpl.Build.Packager {
	case config.PackagerNPM:
		return "npm", []string{"run", tpl.Build.Script}, nil
	case config.PackagerYARN:
		return "yarn", []string{tpl.Build.Script}, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported packager %q", config.ErrInvalidConfig, tpl.Build.Packager)
	}
}

// newBuildCommand 组装完整命令：工作目录为网站目录，环境变量在进程环境基础上合并 WEBSITE
func newBuildCommand(website *config.Website, tpl *config.Template) (Command, error) {
	name, args, err := BuildCommand(tpl)
	if err != nil {
		return Command{}, err
	}

	data, err := json.Marshal(website)
	if err != nil {
		return Command{}, fmt.Errorf("failed to marshal website: %w", err)
	}

	return Command{
		Name: name,
		Args: args,
		Dir:  website.Directory,
		Env:  mergeEnv(os.Environ(), WebsiteEnvKey, string(data)),
	}, nil
}

// mergeEnv 在 base 上设置 key=value，替换已有同名变量，其余保持不变
func mergeEnv(base []string, key, value string) []string {
	prefix := key + "="
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if !strings.HasPrefix(kv, prefix) {
			env = append(env, kv)
		}
	}
	return append(env, prefix+value)
}

// processError 把命令执行错误转换为 ProcessError
func processError(cmd Command, stderr []byte, err error) *ProcessError {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ProcessError{
		Command:  cmd.String(),
		ExitCode: exitCode,
		Stderr:   string(stderr),
		Err:      err,
	}
}
