package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), keybackend.DefaultKeyFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSecretFromFile_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, "  s3cr3t\n\n")

	secret, err := keybackend.LoadSecretFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cr3t"), secret)
}

func TestLoadSecretFromFile_Empty(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, " \n\t")

	_, err := keybackend.LoadSecretFromFile(path)
	assert.ErrorIs(t, err, keybackend.ErrEmptySecret)
}

func TestLoadSecretFromFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := keybackend.LoadSecretFromFile(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveSecret(t *testing.T) {
	t.Parallel()

	file := writeTestFile(t, "from-file\n")

	tests := []struct {
		name    string
		cfg     keybackend.SecretConfig
		want    string
		wantErr error
	}{
		{
			name: "inline wins",
			cfg:  keybackend.SecretConfig{Secret: "inline", File: file},
			want: "inline",
		},
		{
			name: "file fallback",
			cfg:  keybackend.SecretConfig{File: file},
			want: "from-file",
		},
		{
			name:    "nothing configured",
			cfg:     keybackend.SecretConfig{},
			wantErr: storehouse.ErrMissingSecret,
		},
		{
			name:    "key file missing",
			cfg:     keybackend.SecretConfig{File: filepath.Join(t.TempDir(), "missing")},
			wantErr: keybackend.ErrNoSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := keybackend.ResolveSecret(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := keybackend.GenerateSecret(16)
	require.NoError(t, err)
	b, err := keybackend.GenerateSecret(16)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestWriteSecretFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), keybackend.DefaultKeyFile)

	require.NoError(t, keybackend.WriteSecretFile(path, "first", false))
	assert.Error(t, keybackend.WriteSecretFile(path, "second", false))
	require.NoError(t, keybackend.WriteSecretFile(path, "third", true))

	secret, err := keybackend.LoadSecretFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third", string(secret))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
