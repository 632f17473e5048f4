package config

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	CredentialsFileName = "credentials"
	passwordKeySuffix   = ".password"
)

// Credentials 远程主机密码，从 ~/.sitedeploy/credentials 文件加载。
// 文件格式为 <website-id>.password=<password>（只取第一个 = 分割）。
type Credentials map[string]string

// Password 返回指定网站的传输密码
func (c Credentials) Password(websiteID string) string {
	return c[websiteID+passwordKeySuffix]
}

// SetPassword 设置指定网站的传输密码
func (c Credentials) SetPassword(websiteID, password string) {
	c[websiteID+passwordKeySuffix] = password
}

// CredentialsPath 返回默认凭证文件路径
func CredentialsPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, CredentialsFileName), nil
}

// LoadCredentialsFrom 从指定路径加载凭证文件，文件不存在时返回空凭证
func LoadCredentialsFrom(path string) (Credentials, error) {
	cred := make(Credentials)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cred, nil
		}
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		cred[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}

	return cred, nil
}

// SaveCredentialsTo 将凭证保存到指定路径，权限 600
func SaveCredentialsTo(path string, cred Credentials) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(cred)) {
		fmt.Fprintf(&b, "%s=%s\n", key, cred[key])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("保存凭证文件失败: %w", err)
	}
	return nil
}

// ResolvePassword 网站记录未配置密码时，从凭证文件补全
func ResolvePassword(w *Website, cred Credentials) {
	if w.Transfer.Password == "" {
		w.Transfer.Password = cred.Password(w.ID)
	}
}
