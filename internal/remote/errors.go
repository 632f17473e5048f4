package remote

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected        = errors.New("client is not connected, please connect first")
	ErrUnsupportedProtocol = errors.New("unsupported transfer protocol")

	// errNoSuchDir 由各协议后端在列目录时返回，表示目录不存在（非错误）
	errNoSuchDir = errors.New("no such directory")
)

// ConnectionError 连接阶段的错误：主机不可达、认证失败、未连接即调用
type ConnectionError struct {
	Protocol Protocol
	Addr     string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s connection: %v", e.Protocol, e.Err)
	}
	return fmt.Sprintf("%s connection to %s: %v", e.Protocol, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// OperationError 远程操作（mkdir/put/list/close）失败，附带远程路径
type OperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
