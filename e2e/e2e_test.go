package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/clientcli"
)

func newClient(t *testing.T, baseURL, secret string) *clientcli.Client {
	t.Helper()
	client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, Secret: secret})
	require.NoError(t, err)
	return client
}

func writeLocal(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func listLedger(t *testing.T, configPath string) storehouse.ListResult {
	t.Helper()
	var result storehouse.ListResult
	out := runCommand(t, configPath, "ledger", "list", "--all", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

// TestE2E_Ledger_SQLite runs the upload, download and ledger flow on SQLite.
func TestE2E_Ledger_SQLite(t *testing.T) {
	storageDir := t.TempDir()

	baseURL, configPath := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		StoragePath: storageDir,
		Overwrite:   true,
		Download:    true,
		Ledger:      true,
		DBType:      "sqlite",
		DBDSN:       filepath.Join(t.TempDir(), "ledger.db"),
	})

	runLedgerTests(t, baseURL, configPath, storageDir)
}

// TestE2E_Ledger_Postgres runs the same flow on PostgreSQL.
func TestE2E_Ledger_Postgres(t *testing.T) {
	buildBinary(t)
	dsn := getSharedPostgresDatabase(t)
	storageDir := t.TempDir()

	baseURL, configPath := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		StoragePath: storageDir,
		Overwrite:   true,
		Download:    true,
		Ledger:      true,
		DBType:      "postgres",
		DBDSN:       dsn,
	})

	runLedgerTests(t, baseURL, configPath, storageDir)
}

func runLedgerTests(t *testing.T, baseURL, configPath, storageDir string) {
	t.Helper()
	ctx := context.Background()
	client := newClient(t, baseURL, testSecret)

	t.Run("upload commits the file with mode 0644", func(t *testing.T) {
		local := writeLocal(t, "hello.txt", "Hello, World!")

		results, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "docs/hello.txt"})
		require.NoError(t, err)
		require.Len(t, results, 1)

		info, err := os.Stat(filepath.Join(storageDir, "docs", "hello.txt"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("download serves the committed file", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/docs/hello.txt")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Hello, World!", string(body))
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		local := writeLocal(t, "hello.txt", "second version")

		_, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "docs/hello.txt"})
		require.NoError(t, err)

		got, err := os.ReadFile(filepath.Join(storageDir, "docs", "hello.txt"))
		require.NoError(t, err)
		assert.Equal(t, "second version", string(got))
	})

	t.Run("ledger records the latest commit", func(t *testing.T) {
		require.Eventually(t, func() bool {
			for _, e := range listLedger(t, configPath).Items {
				if e.Path == "docs/hello.txt" && e.SizeBytes == int64(len("second version")) {
					return true
				}
			}
			return false
		}, 10*time.Second, 200*time.Millisecond)
	})
}

func TestE2E_Fetch(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(png)
	}))
	defer origin.Close()

	storageDir := t.TempDir()
	baseURL, _ := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		StoragePath: storageDir,
		Overwrite:   true,
	})
	client := newClient(t, baseURL, testSecret)

	t.Run("fetch stores the remote body", func(t *testing.T) {
		result, err := client.Fetch(context.Background(), clientcli.FetchOptions{URL: origin.URL + "/logo", RemotePath: "img/logo.png"})
		require.NoError(t, err)
		assert.Equal(t, "img/logo.png", result.RemotePath)

		got, err := os.ReadFile(filepath.Join(storageDir, "img", "logo.png"))
		require.NoError(t, err)
		assert.Equal(t, png, got)
	})

	t.Run("remote 404 is a network error", func(t *testing.T) {
		_, err := client.Fetch(context.Background(), clientcli.FetchOptions{URL: origin.URL + "/missing", RemotePath: "img/missing.png"})

		var apiErr *clientcli.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Equal(t, "network", apiErr.Kind)
		assert.NoFileExists(t, filepath.Join(storageDir, "img", "missing.png"))
	})
}

func TestE2E_Rejections(t *testing.T) {
	storageDir := t.TempDir()
	baseURL, _ := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		StoragePath: storageDir,
		Overwrite:   false,
		MaxUpload:   1024,
	})
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		local := writeLocal(t, "a.txt", "a")
		_, err := newClient(t, baseURL, "wrong").Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "a.txt"})
		assert.ErrorIs(t, err, clientcli.ErrInvalidSignature)
		assert.NoFileExists(t, filepath.Join(storageDir, "a.txt"))
	})

	t.Run("existing file without overwrite", func(t *testing.T) {
		client := newClient(t, baseURL, testSecret)
		local := writeLocal(t, "b.txt", "b")

		_, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "b.txt"})
		require.NoError(t, err)

		_, err = client.Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "b.txt"})
		assert.ErrorIs(t, err, clientcli.ErrFileExists)
	})

	t.Run("body over the limit", func(t *testing.T) {
		local := writeLocal(t, "big.bin", strings.Repeat("x", 4096))
		_, err := newClient(t, baseURL, testSecret).Upload(ctx, clientcli.UploadOptions{LocalPath: local, RemotePath: "big.bin"})
		assert.ErrorIs(t, err, clientcli.ErrTooLarge)
		assert.NoFileExists(t, filepath.Join(storageDir, "big.bin"))
	})
}

func TestE2E_SignCommand(t *testing.T) {
	configPath := createConfigFile(t, ServerConfig{Port: 8888, StoragePath: t.TempDir()})

	out := runCommand(t, configPath, "sign", "path=a/b.txt", "url=http://example.com/x")

	want := storehouse.ComputeSignature(storehouse.SignedRequest{
		"path": "a/b.txt",
		"url":  "http://example.com/x",
	}, []byte(testSecret), storehouse.AlgorithmSHA1)
	assert.Equal(t, want, strings.TrimSpace(out))
}

func TestE2E_InitPopulatesLedger(t *testing.T) {
	storageDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(storageDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(storageDir, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(storageDir, "nested", "deep.txt"), []byte("deep"), 0o644))

	configPath := createConfigFile(t, ServerConfig{Port: 8888, StoragePath: storageDir})

	runCommand(t, configPath, "init")

	paths := map[string]storehouse.Source{}
	for _, e := range listLedger(t, configPath).Items {
		paths[e.Path] = e.Source
	}
	assert.Equal(t, map[string]storehouse.Source{
		"top.txt":         storehouse.SourceScan,
		"nested/deep.txt": storehouse.SourceScan,
	}, paths)
}
