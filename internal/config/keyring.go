package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService 系统钥匙串中的服务名
const KeyringService = "sitedeploy"

// Keyring 把传输密码保存在系统钥匙串（macOS Keychain / Secret Service / Windows 凭据管理器）
type Keyring struct {
	Service string
}

// NewKeyring 创建使用默认服务名的 Keyring
func NewKeyring() *Keyring {
	return &Keyring{Service: KeyringService}
}

func (k *Keyring) service() string {
	if k.Service != "" {
		return k.Service
	}
	return KeyringService
}

// Password 返回网站的传输密码，没有保存时返回空字符串
func (k *Keyring) Password(websiteID string) (string, error) {
	pw, err := keyring.Get(k.service(), websiteID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取钥匙串失败: %w", err)
	}
	return pw, nil
}

// SetPassword 保存网站的传输密码
func (k *Keyring) SetPassword(websiteID, password string) error {
	if err := keyring.Set(k.service(), websiteID, password); err != nil {
		return fmt.Errorf("写入钥匙串失败: %w", err)
	}
	return nil
}

// DeletePassword 删除网站的传输密码，不存在时不报错
func (k *Keyring) DeletePassword(websiteID string) error {
	err := keyring.Delete(k.service(), websiteID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("删除钥匙串条目失败: %w", err)
	}
	return nil
}
