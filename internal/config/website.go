package config

// website.go 定义网站与模板记录，以及从 YAML 文件加载、校验、补全默认值。

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Protocol 远程传输协议
type Protocol string

const (
	ProtocolFTP  Protocol = "FTP"
	ProtocolSFTP Protocol = "SFTP"
)

// DefaultPort 协议的默认端口
func (p Protocol) DefaultPort() int {
	if p == ProtocolSFTP {
		return 22
	}
	return 21
}

// Packager 模板构建脚本的执行器
type Packager string

const (
	PackagerNPM  Packager = "NPM"
	PackagerYARN Packager = "YARN"
)

// Transfer 远程主机配置，Directory 为远程根目录（所有上传文件的前缀）
type Transfer struct {
	Protocol    Protocol `yaml:"protocol" json:"protocol"`
	Host        string   `yaml:"host" json:"host"`
	Port        int      `yaml:"port,omitempty" json:"port"`
	User        string   `yaml:"user" json:"user"`
	Password    string   `yaml:"password,omitempty" json:"password"`
	Directory   string   `yaml:"directory" json:"directory"`
	HostKeyFile string   `yaml:"host_key_file,omitempty" json:"hostKeyFile,omitempty"`
}

// Field 网站自定义字段，由模板构建脚本通过 WEBSITE 环境变量读取
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

// Website 网站记录
type Website struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description"`
	URL         string   `yaml:"url,omitempty" json:"url"`
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Directory   string   `yaml:"directory,omitempty" json:"directory"` // 本地工作目录
	Modules     []string `yaml:"modules,omitempty" json:"enabledModules"`
	Fields      []Field  `yaml:"fields,omitempty" json:"fields"`
	Transfer    Transfer `yaml:"transfer" json:"ftp"`
}

// TemplateBuild 模板构建配置，Directory 为构建产物相对网站目录的子目录（如 dist/）
type TemplateBuild struct {
	Packager  Packager `yaml:"packager" json:"packager"`
	Script    string   `yaml:"script" json:"script"`
	Directory string   `yaml:"directory" json:"directory"`
}

// Template 网站模板：打包的站点骨架（gzip tar）+ 构建脚本
type Template struct {
	ID      string        `yaml:"id" json:"id"`
	Name    string        `yaml:"name" json:"name"`
	Version string        `yaml:"version,omitempty" json:"version"`
	Archive string        `yaml:"archive" json:"archive"`
	Build   TemplateBuild `yaml:"build" json:"build"`
}

// LoadWebsite 从 YAML 文件加载网站记录并校验
func LoadWebsite(path string) (*Website, error) {
	var w Website
	if err := loadYAML(path, &w); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &w, nil
}

// LoadTemplate 从 YAML 文件加载模板记录；archive 相对路径以 YAML 文件所在目录为基准
func LoadTemplate(path string) (*Template, error) {
	var t Template
	if err := loadYAML(path, &t); err != nil {
		return nil, err
	}
	if t.Archive != "" && !filepath.IsAbs(t.Archive) {
		t.Archive = filepath.Join(filepath.Dir(path), t.Archive)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &t, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate 校验必填字段，并规范化协议名（大小写不敏感）
func (w *Website) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("%w: website id is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(w.ID, `/\`) || w.ID == "." || w.ID == ".." {
		return fmt.Errorf("%w: website id %q must not contain path separators", ErrInvalidConfig, w.ID)
	}
	if w.Name == "" {
		return fmt.Errorf("%w: website name is required", ErrInvalidConfig)
	}

	w.Transfer.Protocol = Protocol(strings.ToUpper(string(w.Transfer.Protocol)))
	switch w.Transfer.Protocol {
	case ProtocolFTP, ProtocolSFTP:
	default:
		return fmt.Errorf("%w: unsupported transfer protocol %q (FTP or SFTP)", ErrInvalidConfig, w.Transfer.Protocol)
	}
	if w.Transfer.Host == "" {
		return fmt.Errorf("%w: transfer host is required", ErrInvalidConfig)
	}
	if w.Transfer.Port < 0 || w.Transfer.Port > 65535 {
		return fmt.Errorf("%w: transfer port %d out of range", ErrInvalidConfig, w.Transfer.Port)
	}
	return nil
}

// ApplyDefaults 补全本地工作目录：未配置时为 <websiteDir>/<id>
func (w *Website) ApplyDefaults(s *Settings) {
	if w.Directory == "" {
		w.Directory = filepath.Join(s.WebsiteDir, w.ID)
	}
	w.Directory = NormalizePath(w.Directory)
}

// Validate 校验模板构建配置
func (t *Template) Validate() error {
	if t.Archive == "" {
		return fmt.Errorf("%w: template archive is required", ErrInvalidConfig)
	}

	t.Build.Packager = Packager(strings.ToUpper(string(t.Build.Packager)))
	switch t.Build.Packager {
	case PackagerNPM, PackagerYARN:
	default:
		return fmt.Errorf("%w: unsupported packager %q (NPM or YARN)", ErrInvalidConfig, t.Build.Packager)
	}
	if t.Build.Script == "" {
		return fmt.Errorf("%w: build script is required", ErrInvalidConfig)
	}
	return nil
}
