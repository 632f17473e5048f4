// Package config 管理 sitedeploy 的运行配置、网站/模板记录和用户交互。
// 运行配置来自环境变量（可由 .env 文件补充），网站与模板记录以 YAML 文件描述。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StateDirName       = ".sitedeploy" // 状态目录，位于用户 home 下
	WebsitesDirName    = "websites"    // 网站本地工作目录的默认父目录
	HistoryFileName    = "history.db"  // 生成事件历史（SQLite）
	DefaultEnvFile     = ".env"
	DefaultNATSSubject = "sitedeploy.generation"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// 环境变量名
const (
	EnvHome        = "SITEDEPLOY_HOME"
	EnvWebsiteDir  = "SITEDEPLOY_WEBSITE_DIR"
	EnvHistoryDB   = "SITEDEPLOY_HISTORY_DB"
	EnvNATSURL     = "SITEDEPLOY_NATS_URL"
	EnvNATSSubject = "SITEDEPLOY_NATS_SUBJECT"
	EnvLogLevel    = "SITEDEPLOY_LOG_LEVEL"
	EnvLogFormat   = "SITEDEPLOY_LOG_FORMAT"
	EnvDialTimeout = "SITEDEPLOY_DIAL_TIMEOUT"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Settings 进程级运行配置
type Settings struct {
	Home        string // 状态目录（默认 ~/.sitedeploy）
	WebsiteDir  string // 网站工作目录的父目录
	HistoryDB   string // 为空时不记录历史（SITEDEPLOY_HISTORY_DB=off）
	NATSURL     string // 为空时不发布到 NATS
	NATSSubject string
	LogLevel    string
	LogFormat   string
	DialTimeout time.Duration // 远程连接超时，0 表示使用默认值
}

// GetStateDir 返回状态目录路径（~/.sitedeploy/）
func GetStateDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// LoadSettings 读取 env 文件（不覆盖已有环境变量）后从环境变量构造配置。
// envFile 为空时尝试当前目录的 .env，不存在则忽略；显式指定的文件必须存在。
func LoadSettings(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", DefaultEnvFile, err)
	}

	stateDir, err := GetStateDir()
	if err != nil {
		return nil, err
	}

	dialTimeout, err := parseTimeout(os.Getenv(EnvDialTimeout))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Home:        stateDir,
		WebsiteDir:  getenv(EnvWebsiteDir, filepath.Join(stateDir, WebsitesDirName)),
		HistoryDB:   HistoryPath(getenv(EnvHistoryDB, filepath.Join(stateDir, HistoryFileName))),
		NATSURL:     os.Getenv(EnvNATSURL),
		NATSSubject: getenv(EnvNATSSubject, DefaultNATSSubject),
		LogLevel:    strings.ToLower(getenv(EnvLogLevel, DefaultLogLevel)),
		LogFormat:   strings.ToLower(getenv(EnvLogFormat, DefaultLogFormat)),
		DialTimeout: dialTimeout,
	}
	return s, nil
}

// HistoryPath 把 "off" / "none" 视为关闭历史记录
func HistoryPath(p string) string {
	switch strings.ToLower(p) {
	case "off", "none":
		return ""
	}
	return p
}

// parseTimeout 解析 "30s" 形式的超时，空值为 0
func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a valid duration", ErrInvalidConfig, EnvDialTimeout, v)
	}
	return d, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// NormalizePath 清理路径并统一为正斜杠
func NormalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
