package builder

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoDirectory = errors.New("website directory is not set")
)

// ProcessError 外部构建命令启动失败或以非零状态退出
type ProcessError struct {
	Command  string
	ExitCode int // 未能启动时为 -1
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("build command %q failed", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\nstderr: " + tail(stderr, 512)
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ExtractError 模板压缩包缺失、损坏或包含不安全的路径
type ExtractError struct {
	Archive string
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract template %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// tail 保留末尾至多 n 字节，起点落在 UTF-8 字符边界上
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
