package template

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// TemplateData 包含所有脚手架模板渲染所需的字段
type TemplateData struct {
	WebsiteID    string // 网站 ID
	WebsiteName  string // 网站名称
	URL          string // 访问地址
	Protocol     string // FTP / SFTP
	Host         string // 远程主机
	Port         int    // 远程端口
	User         string // 远程用户名
	RemoteDir    string // 远程根目录
	TemplateID   string // 模板 ID
	TemplateName string // 模板名称
	Archive      string // 模板压缩包路径
	Packager     string // NPM / YARN
	Script       string // 构建脚本名
	OutputDir    string // 构建产物子目录
}

// DefaultData 返回填好常见默认值的数据
func DefaultData(websiteID string) *TemplateData {
	return &TemplateData{
		WebsiteID:    websiteID,
		WebsiteName:  websiteID,
		URL:          "https://" + websiteID + ".example.com",
		Protocol:     "SFTP",
		Host:         "example.com",
		Port:         22,
		User:         "deploy",
		RemoteDir:    "/var/www/" + websiteID,
		TemplateID:   "default",
		TemplateName: "Default",
		Archive:      "template.tar.gz",
		Packager:     "NPM",
		Script:       "build",
		OutputDir:    "dist",
	}
}

// 模板文件（需要渲染）→ 输出文件名
var templateMapping = map[string]string{
	"templates/website.yaml.tmpl":  "website.yaml",
	"templates/template.yaml.tmpl": "template.yaml",
}

// 静态文件（原样输出）→ 输出文件名
var staticMapping = map[string]string{
	"templates/env.example": ".env.example",
}

// ErrFileExists 输出文件已存在且未指定覆盖
var ErrFileExists = errors.New("file already exists")

// RenderTemplate 渲染指定模板文件，返回渲染后的内容
func RenderTemplate(name string, data *TemplateData) ([]byte, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

// GetStaticFile 返回静态文件的原始内容
func GetStaticFile(name string) ([]byte, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read static file %s: %w", name, err)
	}
	return content, nil
}

// RenderAll 渲染所有文件，返回 输出文件名 → 内容 的映射
func RenderAll(data *TemplateData) (map[string][]byte, error) {
	result := make(map[string][]byte)

	for src, dst := range templateMapping {
		content, err := RenderTemplate(src, data)
		if err != nil {
			return nil, err
		}
		result[dst] = content
	}

	for src, dst := range staticMapping {
		content, err := GetStaticFile(src)
		if err != nil {
			return nil, err
		}
		result[dst] = content
	}

	return result, nil
}

// WriteAll 把脚手架写入 dir，返回写入的文件路径（按名称排序）。
// 任一目标文件已存在且 force=false 时不写入任何文件。
func WriteAll(dir string, data *TemplateData, force bool) ([]string, error) {
	files, err := RenderAll(data)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if !force {
		for _, name := range names {
			target := filepath.Join(dir, name)
			if _, err := os.Stat(target); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrFileExists, target)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, files[name], 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, nil
}

// TemplateFileList 返回所有模板文件路径
func TemplateFileList() []string {
	return sortedKeys(templateMapping)
}

// StaticFileList 返回所有静态文件路径
func StaticFileList() []string {
	return sortedKeys(staticMapping)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
