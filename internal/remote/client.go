// Package remote 提供 FTP / SFTP 统一的远程文件传输客户端。
// 两种协议的原生能力不同（FTP 只有 MKD/LIST/STOR 原始命令，SFTP 有原生 mkdir/stat），
// 这里把它们收敛到同一组操作上：目录存在性统一通过“列父目录 + 匹配文件名”判断，
// 递归建目录和上传逻辑只实现一次，协议后端只负责最底层的原语。
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"slices"
	"strconv"
	"time"
)

// Protocol 传输协议
type Protocol string

const (
	FTP  Protocol = "FTP"
	SFTP Protocol = "SFTP"
)

const (
	DefaultFTPPort     = 21
	DefaultSFTPPort    = 22
	DefaultDialTimeout = 10 * time.Second
)

// Config 远程主机连接参数
type Config struct {
	Protocol    Protocol
	Host        string
	Port        int
	User        string
	Password    string
	HostKeyFile string        // SFTP known_hosts 文件，空表示不校验主机密钥
	Timeout     time.Duration // 建立连接的超时
}

// Addr 返回 host:port，端口为 0 时按协议取默认值
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultFTPPort
		if c.Protocol == SFTP {
			port = DefaultSFTPPort
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultDialTimeout
}

// Client 协议无关的远程传输客户端，支持 mock 测试
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Mkdir(remotePath string, recursive bool) error
	Put(localPath, remotePath string) error
	Exists(remotePath string) (bool, error)
}

// session 协议后端需要提供的最小原语集合
type session interface {
	// readDir 返回目录下的条目名；目录不存在时返回 errNoSuchDir
	readDir(dir string) ([]string, error)
	makeDir(dir string) error
	store(remotePath string, r io.Reader) error
	close() error
}

// dialFunc 建立一个已认证的会话
type dialFunc func(ctx context.Context, cfg Config) (session, error)

// client 基于 session 原语实现 Client 的全部语义
type client struct {
	cfg  Config
	dial dialFunc
	sess session
}

// New 按协议创建客户端（尚未连接）
func New(cfg Config) (Client, error) {
	switch cfg.Protocol {
	case FTP:
		return NewFTP(cfg), nil
	case SFTP:
		return NewSFTP(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, cfg.Protocol)
	}
}

func (c *client) Connect(ctx context.Context) error {
	if c.sess != nil {
		return nil
	}
	sess, err := c.dial(ctx, c.cfg)
	if err != nil {
		return &ConnectionError{Protocol: c.cfg.Protocol, Addr: c.cfg.Addr(), Err: err}
	}
	c.sess = sess
	return nil
}

func (c *client) Close() error {
	if err := c.checkConnection(); err != nil {
		return err
	}
	sess := c.sess
	c.sess = nil
	if err := sess.close(); err != nil {
		return &OperationError{Op: "close", Path: c.cfg.Addr(), Err: err}
	}
	return nil
}

// Exists 列出父目录并匹配文件名。"/" 直接返回 true（部分服务器限制列根目录）。
func (c *client) Exists(remotePath string) (bool, error) {
	if err := c.checkConnection(); err != nil {
		return false, err
	}
	if remotePath == "/" {
		return true, nil
	}

	p := path.Clean(remotePath)
	if isRoot(p) {
		return true, nil
	}

	dir, base := path.Dir(p), path.Base(p)
	names, err := c.sess.readDir(dir)
	if errors.Is(err, errNoSuchDir) {
		return false, nil
	}
	if err != nil {
		return false, &OperationError{Op: "list", Path: dir, Err: err}
	}
	return slices.Contains(names, base), nil
}

// Mkdir 创建远程目录。recursive=true 时先确保父目录存在（父目录先于子目录创建）。
// 目录已存在视为成功。
func (c *client) Mkdir(remotePath string, recursive bool) error {
	if err := c.checkConnection(); err != nil {
		return err
	}

	p := path.Clean(remotePath)
	if isRoot(p) {
		return nil
	}

	if recursive {
		parent := path.Dir(p)
		if !isRoot(parent) {
			exists, err := c.Exists(parent)
			if err != nil {
				return err
			}
			if !exists {
				if err := c.Mkdir(parent, true); err != nil {
					return err
				}
			}
		}
	}

	return c.mkdirOnce(p)
}

// mkdirOnce 只尝试创建一次；服务器拒绝但目录实际已存在时视为成功
func (c *client) mkdirOnce(p string) error {
	mkErr := c.sess.makeDir(p)
	if mkErr == nil {
		return nil
	}
	exists, err := c.Exists(p)
	if err == nil && exists {
		return nil
	}
	return &OperationError{Op: "mkdir", Path: p, Err: mkErr}
}

// Put 将本地文件以流的方式上传到远程路径（父目录需已存在）
func (c *client) Put(localPath, remotePath string) error {
	if err := c.checkConnection(); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return &OperationError{Op: "put", Path: remotePath, Err: err}
	}
	defer f.Close()

	if err := c.sess.store(remotePath, f); err != nil {
		return &OperationError{Op: "put", Path: remotePath, Err: err}
	}
	return nil
}

func (c *client) checkConnection() error {
	if c.sess == nil {
		return &ConnectionError{Protocol: c.cfg.Protocol, Err: ErrNotConnected}
	}
	return nil
}

func isRoot(p string) bool {
	return p == "/" || p == "." || p == ""
}
