package remote

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSession 内存中的远程文件系统，记录所有原语调用
type memSession struct {
	dirs     map[string]bool
	files    map[string]string
	calls    []string
	closed   int
	storeErr error
	listErr  error
}

func newMemSession() *memSession {
	return &memSession{
		dirs:  map[string]bool{"/": true, ".": true},
		files: map[string]string{},
	}
}

func (m *memSession) readDir(dir string) ([]string, error) {
	m.calls = append(m.calls, "list "+dir)
	if m.listErr != nil {
		return nil, m.listErr
	}
	if !m.dirs[dir] {
		return nil, errNoSuchDir
	}
	var names []string
	for p := range m.dirs {
		if p != dir && path.Dir(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	for p := range m.files {
		if path.Dir(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	return names, nil
}

func (m *memSession) makeDir(dir string) error {
	m.calls = append(m.calls, "mkdir "+dir)
	if m.dirs[dir] {
		return errors.New("550 directory already exists")
	}
	if !m.dirs[path.Dir(dir)] {
		return errors.New("550 parent missing")
	}
	m.dirs[dir] = true
	return nil
}

func (m *memSession) store(remotePath string, r io.Reader) error {
	m.calls = append(m.calls, "store "+remotePath)
	if m.storeErr != nil {
		return m.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[remotePath] = string(data)
	return nil
}

func (m *memSession) close() error {
	m.closed++
	return nil
}

func (m *memSession) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func connectedClient(t *testing.T, sess *memSession) *client {
	t.Helper()
	c := &client{
		cfg: Config{Protocol: SFTP, Host: "example.com"},
		dial: func(ctx context.Context, cfg Config) (session, error) {
			return sess, nil
		},
	}
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestNew_SelectsBackendByProtocol(t *testing.T) {
	ftpClient, err := New(Config{Protocol: FTP, Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, FTP, ftpClient.(*client).cfg.Protocol)

	sftpClient, err := New(Config{Protocol: SFTP, Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, SFTP, sftpClient.(*client).cfg.Protocol)

	_, err = New(Config{Protocol: "SCP"})
	assert.True(t, errors.Is(err, ErrUnsupportedProtocol))
}

func TestConfig_AddrDefaultsPortByProtocol(t *testing.T) {
	assert.Equal(t, "example.com:21", Config{Protocol: FTP, Host: "example.com"}.Addr())
	assert.Equal(t, "example.com:22", Config{Protocol: SFTP, Host: "example.com"}.Addr())
	assert.Equal(t, "example.com:2222", Config{Protocol: SFTP, Host: "example.com", Port: 2222}.Addr())
}

func TestClient_OperationsBeforeConnect(t *testing.T) {
	c := &client{cfg: Config{Protocol: FTP}}

	var connErr *ConnectionError
	_, err := c.Exists("/a")
	require.True(t, errors.As(err, &connErr))
	assert.True(t, errors.Is(err, ErrNotConnected))

	assert.True(t, errors.Is(c.Mkdir("/a", true), ErrNotConnected))
	assert.True(t, errors.Is(c.Put("local", "/a"), ErrNotConnected))
	assert.True(t, errors.Is(c.Close(), ErrNotConnected))
}

func TestClient_ConnectFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	c := &client{
		cfg: Config{Protocol: SFTP, Host: "unreachable", Port: 2222},
		dial: func(ctx context.Context, cfg Config) (session, error) {
			return nil, dialErr
		},
	}

	err := c.Connect(context.Background())
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "unreachable:2222", connErr.Addr)
	assert.True(t, errors.Is(err, dialErr))

	_, err = c.Exists("/x")
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestClient_ExistsRootSkipsListing(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	ok, err := c.Exists("/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, sess.calls)
}

func TestClient_ExistsListsParent(t *testing.T) {
	sess := newMemSession()
	sess.dirs["/site1"] = true
	sess.files["/site1/index.html"] = "x"
	c := connectedClient(t, sess)

	ok, err := c.Exists("/site1/index.html")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"list /site1"}, sess.calls)

	ok, err = c.Exists("/site1/missing.html")
	require.NoError(t, err)
	assert.False(t, ok)

	// 父目录不存在
	ok, err = c.Exists("/nope/file")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ExistsListingFailure(t *testing.T) {
	sess := newMemSession()
	sess.listErr = errors.New("421 service not available")
	c := connectedClient(t, sess)

	_, err := c.Exists("/site1")
	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "list", opErr.Op)
	assert.Equal(t, "/", opErr.Path)
}

func TestClient_MkdirRecursiveCreatesParentsFirst(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	require.NoError(t, c.Mkdir("/site1/b/c", true))

	assert.Equal(t, []string{"mkdir /site1", "mkdir /site1/b", "mkdir /site1/b/c"}, sess.callsWithPrefix("mkdir"))
	assert.True(t, sess.dirs["/site1/b/c"])
}

func TestClient_MkdirRecursiveIsIdempotent(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	require.NoError(t, c.Mkdir("/site1/b", true))
	before := len(sess.dirs)
	require.NoError(t, c.Mkdir("/site1/b", true))

	assert.Len(t, sess.dirs, before)
	assert.True(t, sess.dirs["/site1/b"])
}

func TestClient_MkdirNonRecursive(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	require.NoError(t, c.Mkdir("/site1", false))
	// 已存在视为成功
	require.NoError(t, c.Mkdir("/site1", false))

	// 父目录不存在：只尝试一次，失败
	err := c.Mkdir("/x/y", false)
	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "mkdir", opErr.Op)
	assert.Equal(t, "/x/y", opErr.Path)
	assert.False(t, slices.Contains(sess.calls, "mkdir /x"))
}

func TestClient_MkdirRootIsNoop(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	require.NoError(t, c.Mkdir("/", true))
	require.NoError(t, c.Mkdir(".", true))
	assert.Empty(t, sess.calls)
}

func TestClient_Put(t *testing.T) {
	sess := newMemSession()
	sess.dirs["/site1"] = true
	c := connectedClient(t, sess)

	local := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(local, []byte("<h1>hi</h1>"), 0644))

	require.NoError(t, c.Put(local, "/site1/index.html"))
	assert.Equal(t, "<h1>hi</h1>", sess.files["/site1/index.html"])
}

func TestClient_PutFailures(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	var opErr *OperationError
	err := c.Put(filepath.Join(t.TempDir(), "missing"), "/a.txt")
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "/a.txt", opErr.Path)

	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("a"), 0644))
	sess.storeErr = errors.New("552 quota exceeded")
	err = c.Put(local, "/a.txt")
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "put", opErr.Op)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_CloseOnce(t *testing.T) {
	sess := newMemSession()
	c := connectedClient(t, sess)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, sess.closed)

	err := c.Close()
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.Equal(t, 1, sess.closed)
}
