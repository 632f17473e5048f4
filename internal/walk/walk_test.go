package walk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// 独立的穷举遍历，用作对照
func referenceFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	var visit func(dir string)
	visit = func(dir string) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				visit(p)
			} else if e.Type().IsRegular() {
				out = append(out, p)
			}
		}
	}
	visit(root)
	return out
}

func TestFiles_MatchesExhaustiveTraversal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<html>")
	writeFile(t, filepath.Join(root, "css", "main.css"), "body{}")
	writeFile(t, filepath.Join(root, "js", "vendor", "lib.js"), "x")
	writeFile(t, filepath.Join(root, "js", "app.js"), "y")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0755))

	files, err := Files(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, referenceFiles(t, root), files)
	assert.Len(t, files, 4)
	for _, f := range files {
		assert.True(t, filepath.IsAbs(f), "expected absolute path, got %s", f)
	}
}

func TestFiles_RelativeRootReturnsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "a.txt"), "a")
	t.Chdir(root)

	files, err := Files("dist")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "dist", "a.txt"), files[0])
}

func TestFiles_EmptyDirectory(t *testing.T) {
	files, err := Files(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFiles_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, path, "content")

	_, err := Files(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotADirectory))
}

func TestFiles_MissingRoot(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrNotADirectory))
}

func TestFiles_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.txt"), "r")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	files, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "real.txt")}, files)
}
