// Package walk 递归列出目录下的所有普通文件，用于确定构建产物的上传清单。
package walk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotADirectory = errors.New("not a directory")
)

// IOError 遍历过程中的文件系统错误（附带出错路径）
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Files 返回 root 下所有普通文件的绝对路径，顺序不保证。
// 目录本身不会出现在结果中；符号链接既不跟随也不返回。
func Files(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &IOError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Path: path, Err: err}
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
