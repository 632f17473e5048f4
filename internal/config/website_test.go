package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadWebsite(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "website.yaml", `
id: site1
name: My Site
url: https://example.com
enabled: true
fields:
  - name: title
    value: Hello
  - name: phone
    value: 123
transfer:
  protocol: sftp
  host: example.com
  port: 2222
  user: deploy
  directory: /var/www/site1
`)

	w, err := LoadWebsite(path)
	require.NoError(t, err)
	assert.Equal(t, "site1", w.ID)
	assert.Equal(t, ProtocolSFTP, w.Transfer.Protocol)
	assert.Equal(t, 2222, w.Transfer.Port)
	assert.Equal(t, "/var/www/site1", w.Transfer.Directory)
	require.Len(t, w.Fields, 2)
	assert.Equal(t, "Hello", w.Fields[0].Value)
	assert.Equal(t, 123, w.Fields[1].Value)
}

func TestWebsiteValidate(t *testing.T) {
	valid := func() Website {
		return Website{
			ID:       "site1",
			Name:     "Site",
			Transfer: Transfer{Protocol: ProtocolFTP, Host: "ftp.example.com"},
		}
	}

	tests := []struct {
		name   string
		mutate func(w *Website)
	}{
		{"missing id", func(w *Website) { w.ID = "" }},
		{"id with separator", func(w *Website) { w.ID = "../etc" }},
		{"missing name", func(w *Website) { w.Name = "" }},
		{"bad protocol", func(w *Website) { w.Transfer.Protocol = "SCP" }},
		{"missing host", func(w *Website) { w.Transfer.Host = "" }},
		{"bad port", func(w *Website) { w.Transfer.Port = 70000 }},
	}

	w := valid()
	require.NoError(t, w.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid()
			tt.mutate(&w)
			err := w.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestWebsiteApplyDefaults(t *testing.T) {
	base := t.TempDir()
	w := &Website{ID: "site1"}
	w.ApplyDefaults(&Settings{WebsiteDir: base})
	assert.Equal(t, NormalizePath(filepath.Join(base, "site1")), w.Directory)

	w = &Website{ID: "site1", Directory: "/srv/sites/./site1/"}
	w.ApplyDefaults(&Settings{WebsiteDir: base})
	assert.Equal(t, "/srv/sites/site1", w.Directory)
}

func TestLoadTemplate_ResolvesArchiveRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "template.yaml", `
id: tpl1
name: Landing
archive: landing.tar.gz
build:
  packager: yarn
  script: build
  directory: dist/
`)

	tpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "landing.tar.gz"), tpl.Archive)
	assert.Equal(t, PackagerYARN, tpl.Build.Packager)
	assert.Equal(t, "dist/", tpl.Build.Directory)
}

func TestLoadTemplate_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing archive": "build: {packager: npm, script: build}",
		"bad packager":    "archive: a.tgz\nbuild: {packager: pnpm, script: build}",
		"missing script":  "archive: a.tgz\nbuild: {packager: npm}",
		"bad yaml":        "archive: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTemplate(writeYAML(t, dir, "t.yaml", content))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/a/c", NormalizePath("/a/b/../c/"))
	assert.Equal(t, "a/b", NormalizePath("a//b"))
}
