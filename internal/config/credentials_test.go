package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials")

	cred := Credentials{}
	cred.SetPassword("site1", "p@ss=word")
	cred.SetPassword("site2", "other")

	require.NoError(t, SaveCredentialsTo(path, cred))

	// 验证文件权限为 600
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadCredentialsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "p@ss=word", loaded.Password("site1"))
	assert.Equal(t, "other", loaded.Password("site2"))
	assert.Empty(t, loaded.Password("site3"))
}

func TestLoadCredentials_NotFound(t *testing.T) {
	cred, err := LoadCredentialsFrom(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, cred)
}

func TestLoadCredentials_SkipsCommentsAndMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "# comment\n\nnot-a-pair\n site1.password = abc \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cred, err := LoadCredentialsFrom(path)
	require.NoError(t, err)
	assert.Len(t, cred, 1)
	assert.Equal(t, "abc", cred.Password("site1"))
}

func TestResolvePassword(t *testing.T) {
	cred := Credentials{}
	cred.SetPassword("site1", "from-file")

	w := &Website{ID: "site1"}
	ResolvePassword(w, cred)
	assert.Equal(t, "from-file", w.Transfer.Password)

	// 网站记录中已有密码时不覆盖
	w = &Website{ID: "site1", Transfer: Transfer{Password: "inline"}}
	ResolvePassword(w, cred)
	assert.Equal(t, "inline", w.Transfer.Password)
}
