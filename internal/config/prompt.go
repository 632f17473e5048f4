package config

// prompt.go 交互式补全网站的传输配置和密码。
// 输入不是终端时按行读取（密码不掩码），测试直接传入 strings.Reader。

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter 从 in 读取回答，把提示写到 out
type Prompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Reader
}

// NewPrompter 创建 Prompter
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, lines: bufio.NewReader(in)}
}

func (p *Prompter) terminal() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

// IsInteractive 输入是否来自终端（非终端时不应发起交互）
func (p *Prompter) IsInteractive() bool {
	_, ok := p.terminal()
	return ok
}

// ask 读取一行回答，空回答或输入结束时返回 def
func (p *Prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// PromptConfirm 确认提示，接受 y / yes
func (p *Prompter) PromptConfirm(message string, defaultYes bool) (bool, error) {
	def := "y/N"
	if defaultYes {
		def = "Y/n"
	}
	answer, err := p.ask(message, def)
	if err != nil {
		return false, err
	}
	if answer == def {
		return defaultYes, nil
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// PromptProtocol 选择传输协议，可输入序号或协议名
func (p *Prompter) PromptProtocol(def Protocol) (Protocol, error) {
	choices := []Protocol{ProtocolSFTP, ProtocolFTP}
	fmt.Fprintln(p.out, "传输协议:")
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}

	answer, err := p.ask("选择", string(def))
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], nil
	}
	for _, c := range choices {
		if strings.EqualFold(answer, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported transfer protocol %q (FTP or SFTP)", ErrInvalidConfig, answer)
}

// PromptPort 读取端口号，范围 1-65535
func (p *Prompter) PromptPort(def int) (int, error) {
	answer, err := p.ask("端口", strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(answer)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: invalid port %q", ErrInvalidConfig, answer)
	}
	return port, nil
}

// PromptTransfer 以 t 为默认值逐项询问传输配置。
// 切换协议时，仍为旧协议默认端口的端口随之切换。
func (p *Prompter) PromptTransfer(t Transfer) (Transfer, error) {
	protocol, err := p.PromptProtocol(t.Protocol)
	if err != nil {
		return t, err
	}
	if protocol != t.Protocol && (t.Port == 0 || t.Port == t.Protocol.DefaultPort()) {
		t.Port = protocol.DefaultPort()
	}
	t.Protocol = protocol

	if t.Host, err = p.ask("主机", t.Host); err != nil {
		return t, err
	}
	if t.Host == "" {
		return t, fmt.Errorf("%w: transfer host is required", ErrInvalidConfig)
	}
	if t.Port == 0 {
		t.Port = protocol.DefaultPort()
	}
	if t.Port, err = p.PromptPort(t.Port); err != nil {
		return t, err
	}
	if t.User, err = p.ask("用户", t.User); err != nil {
		return t, err
	}
	if t.Directory, err = p.ask("远程目录", t.Directory); err != nil {
		return t, err
	}
	return t, nil
}

// PromptTransferPassword 读取网站的传输密码。t 非空时提示中带上 user@host。
func (p *Prompter) PromptTransferPassword(websiteID string, t *Transfer) (string, error) {
	if t != nil && t.Host != "" {
		fmt.Fprintf(p.out, "网站 %s 的 %s 密码 (%s@%s): ", websiteID, t.Protocol, t.User, t.Host)
	} else {
		fmt.Fprintf(p.out, "网站 %s 的传输密码: ", websiteID)
	}

	if fd, ok := p.terminal(); ok {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
