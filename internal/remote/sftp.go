package remote

// sftp.go 提供基于 SSH 密码认证的 SFTP 后端。

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// NewSFTP 创建 SFTP 客户端
func NewSFTP(cfg Config) Client {
	cfg.Protocol = SFTP
	return &client{cfg: cfg, dial: dialSFTP}
}

func dialSFTP(ctx context.Context, cfg Config) (session, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.HostKeyFile != "" {
		cb, err := knownhosts.New(cfg.HostKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", cfg.HostKeyFile, err)
		}
		hostKeyCallback = cb
	}

	password := cfg.Password
	config := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// 部分服务器只开放 keyboard-interactive 形式的密码认证
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.timeout(),
	}

	addr := cfg.Addr()
	dialer := net.Dialer{Timeout: cfg.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}

	return &sftpSession{sftp: sftpClient, ssh: sshClient}, nil
}

type sftpSession struct {
	sftp *sftp.Client
	ssh  *ssh.Client
}

func (s *sftpSession) readDir(dir string) ([]string, error) {
	infos, err := s.sftp.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errNoSuchDir
		}
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func (s *sftpSession) makeDir(dir string) error {
	return s.sftp.Mkdir(dir)
}

func (s *sftpSession) store(remotePath string, r io.Reader) error {
	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := f.ReadFrom(r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *sftpSession) close() error {
	s.sftp.Close()
	return s.ssh.Close()
}
