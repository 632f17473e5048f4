package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvWebsiteDir, "")
	t.Setenv(EnvHistoryDB, "")
	t.Setenv(EnvNATSURL, "")
	t.Setenv(EnvLogLevel, "")
	t.Chdir(t.TempDir())

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, home, s.Home)
	assert.Equal(t, filepath.Join(home, WebsitesDirName), s.WebsiteDir)
	assert.Equal(t, filepath.Join(home, HistoryFileName), s.HistoryDB)
	assert.Empty(t, s.NATSURL)
	assert.Equal(t, DefaultNATSSubject, s.NATSSubject)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadSettings_EnvFile(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(EnvNATSURL, "")
	os.Unsetenv(EnvNATSURL)
	// 已存在的环境变量优先于 env 文件
	t.Setenv(EnvLogLevel, "warn")

	envFile := filepath.Join(t.TempDir(), "sitedeploy.env")
	content := "SITEDEPLOY_NATS_URL=nats://localhost:4222\nSITEDEPLOY_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	s, err := LoadSettings(envFile)
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", s.NATSURL)
	assert.Equal(t, "warn", s.LogLevel)
}

func TestLoadSettings_MissingExplicitEnvFile(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadSettings_HistoryOff(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(EnvHistoryDB, "off")
	t.Chdir(t.TempDir())

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Empty(t, s.HistoryDB)

	assert.Empty(t, HistoryPath("NONE"))
	assert.Equal(t, "/tmp/h.db", HistoryPath("/tmp/h.db"))
}

func TestLoadSettings_DialTimeout(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Chdir(t.TempDir())

	t.Setenv(EnvDialTimeout, "")
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Zero(t, s.DialTimeout)

	t.Setenv(EnvDialTimeout, "30s")
	s, err = LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.DialTimeout)

	for _, v := range []string{"soon", "-5s"} {
		t.Setenv(EnvDialTimeout, v)
		_, err = LoadSettings("")
		assert.ErrorIs(t, err, ErrInvalidConfig, v)
	}
}
