package http_test

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storehousehttp "github.com/sagarc03/storehouse/http"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDownload(t *testing.T) {
	f := newFixture(t, true, func(cfg *storehousehttp.HandlerConfig) {
		cfg.Download.Enabled = true
	})
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "docs", "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "docs", ".t1234"), []byte("partial"), 0o644))

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{name: "file", path: "/files/docs/a.txt", status: http.StatusOK, body: "hello"},
		{name: "missing", path: "/files/docs/b.txt", status: http.StatusNotFound},
		{name: "directory", path: "/files/docs/", status: http.StatusNotFound},
		{name: "hidden temp", path: "/files/docs/.t1234", status: http.StatusNotFound},
		{name: "root", path: "/files/", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, f.server.URL+tt.path)
			assert.Equal(t, tt.status, status)
			if tt.body != "" {
				assert.Equal(t, tt.body, body)
			}
			if status == http.StatusNotFound {
				assert.Contains(t, body, "404 Not Found")
			}
		})
	}
}

func TestDownload_Disabled(t *testing.T) {
	f := newFixture(t, true, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("hello"), 0o644))

	status, _ := get(t, f.server.URL+"/files/a.txt")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDownload_RootPrefix(t *testing.T) {
	f := newFixture(t, true, func(cfg *storehousehttp.HandlerConfig) {
		cfg.Download.Enabled = true
		cfg.Download.Prefix = "/"
	})
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("hello"), 0o644))

	status, body := get(t, f.server.URL+"/a.txt")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", body)
}
