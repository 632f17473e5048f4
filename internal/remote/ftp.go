package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"

	"github.com/jlaffaye/ftp"
)

// ftpConn 抽象 jlaffaye/ftp 的连接，支持 mock 测试
type ftpConn interface {
	Login(user, password string) error
	MakeDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Stor(path string, r io.Reader) error
	Quit() error
}

// ftpDialFunc 建立 FTP 控制连接的函数类型
type ftpDialFunc func(addr string, options ...ftp.DialOption) (ftpConn, error)

func dialFTP(addr string, options ...ftp.DialOption) (ftpConn, error) {
	conn, err := ftp.Dial(addr, options...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewFTP 创建 FTP 客户端
func NewFTP(cfg Config) Client {
	return newFTPClient(cfg, dialFTP)
}

func newFTPClient(cfg Config, dial ftpDialFunc) *client {
	cfg.Protocol = FTP
	return &client{
		cfg: cfg,
		dial: func(ctx context.Context, cfg Config) (session, error) {
			conn, err := dial(cfg.Addr(),
				ftp.DialWithContext(ctx),
				ftp.DialWithTimeout(cfg.timeout()),
			)
			if err != nil {
				return nil, err
			}
			if err := conn.Login(cfg.User, cfg.Password); err != nil {
				_ = conn.Quit()
				return nil, fmt.Errorf("login as %q: %w", cfg.User, err)
			}
			return &ftpSession{conn: conn}, nil
		},
	}
}

type ftpSession struct {
	conn ftpConn
}

// readDir 通过 LIST 列目录；服务器返回 550（文件不可用）表示目录不存在
func (s *ftpSession) readDir(dir string) ([]string, error) {
	entries, err := s.conn.List(dir)
	if err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
			return nil, errNoSuchDir
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// 部分服务器 LIST 返回完整路径
		names = append(names, path.Base(e.Name))
	}
	return names, nil
}

// makeDir 发送原始 MKD 命令
func (s *ftpSession) makeDir(dir string) error {
	return s.conn.MakeDir(dir)
}

// store 以二进制模式（登录后 TYPE I）STOR 文件
func (s *ftpSession) store(remotePath string, r io.Reader) error {
	return s.conn.Stor(remotePath, r)
}

func (s *ftpSession) close() error {
	return s.conn.Quit()
}
