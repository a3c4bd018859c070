package storehouse_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T, alg storehouse.Algorithm) *storehouse.Authenticator {
	t.Helper()
	auth, err := storehouse.NewAuthenticator([]byte("s3cr3t"), alg)
	require.NoError(t, err)
	return auth
}

func TestNewAuthenticator(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		_, err := storehouse.NewAuthenticator(nil, storehouse.AlgorithmSHA1)
		assert.ErrorIs(t, err, storehouse.ErrMissingSecret)
	})

	t.Run("default algorithm", func(t *testing.T) {
		auth, err := storehouse.NewAuthenticator([]byte("k"), "")
		require.NoError(t, err)
		assert.Equal(t, storehouse.AlgorithmSHA1, auth.Algorithm())
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := storehouse.NewAuthenticator([]byte("k"), "md5")
		assert.Error(t, err)
	})

	t.Run("secret is copied", func(t *testing.T) {
		secret := []byte("s3cr3t")
		auth, err := storehouse.NewAuthenticator(secret, storehouse.AlgorithmSHA1)
		require.NoError(t, err)
		before := auth.ComputeSignature(storehouse.SignedRequest{"path": "a"})
		secret[0] = 'X'
		assert.Equal(t, before, auth.ComputeSignature(storehouse.SignedRequest{"path": "a"}))
	})
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    storehouse.Algorithm
		wantErr bool
	}{
		{in: "", want: storehouse.AlgorithmSHA1},
		{in: "sha1", want: storehouse.AlgorithmSHA1},
		{in: "SHA256", want: storehouse.AlgorithmSHA256},
		{in: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := storehouse.ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalString(t *testing.T) {
	tests := []struct {
		name   string
		fields storehouse.SignedRequest
		want   string
	}{
		{
			name:   "no fields",
			fields: storehouse.SignedRequest{},
			want:   "secret=s3cr3t",
		},
		{
			name:   "single field",
			fields: storehouse.SignedRequest{"path": "a/b.txt"},
			want:   "path=a/b.txt&secret=s3cr3t",
		},
		{
			name:   "sorted byte-wise",
			fields: storehouse.SignedRequest{"url": "http://x", "path": "p", "Zeta": "z"},
			want:   "Zeta=z&path=p&url=http://x&secret=s3cr3t",
		},
		{
			name:   "signature and file skipped",
			fields: storehouse.SignedRequest{"path": "p", "signature": "abc", "file": "bytes"},
			want:   "path=p&secret=s3cr3t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storehouse.CanonicalString(tt.fields, []byte("s3cr3t")))
		})
	}
}

func TestComputeSignature_KnownVectors(t *testing.T) {
	fields := storehouse.SignedRequest{"path": "a/b.txt"}

	assert.Equal(t,
		"bc4c66e61dbbed556201799471e48f1d36deb450",
		newAuth(t, storehouse.AlgorithmSHA1).ComputeSignature(fields))
	assert.Equal(t,
		"ac5cd6246000105256042f51e05fc8f1245d0d74ecf6f03086f7c1c9dbd1f6a2",
		newAuth(t, storehouse.AlgorithmSHA256).ComputeSignature(fields))
	assert.Equal(t,
		"a4fa5561a1073d876cdb79b39ae626498f75dbb7",
		newAuth(t, storehouse.AlgorithmSHA1).ComputeSignature(storehouse.SignedRequest{}))
}

func TestComputeSignature_OrderIndependent(t *testing.T) {
	auth := newAuth(t, storehouse.AlgorithmSHA1)

	// Maps have no order; build the same request many ways and require
	// one signature.
	names := []string{"path", "url", "b", "a", "z"}
	want := ""
	for rotation := range names {
		fields := storehouse.SignedRequest{}
		for i := range names {
			n := names[(i+rotation)%len(names)]
			fields[n] = "v-" + n
		}
		got := auth.ComputeSignature(fields)
		if want == "" {
			want = got
		}
		assert.Equal(t, want, got)
	}

	assert.Equal(t, want, storehouse.ComputeSignature(storehouse.SignedRequest{
		"z": "v-z", "a": "v-a", "b": "v-b", "url": "v-url", "path": "v-path",
	}, []byte("s3cr3t"), storehouse.AlgorithmSHA1))
}

func TestVerify(t *testing.T) {
	auth := newAuth(t, storehouse.AlgorithmSHA1)
	fields := storehouse.SignedRequest{"path": "a/b.txt", "url": "http://example.com/x"}
	sig := auth.ComputeSignature(fields)

	t.Run("valid", func(t *testing.T) {
		assert.True(t, auth.Verify(fields, sig))
	})

	t.Run("uppercase hex rejected", func(t *testing.T) {
		assert.False(t, auth.Verify(fields, strings.ToUpper(sig)))
	})

	t.Run("empty candidate", func(t *testing.T) {
		assert.False(t, auth.Verify(fields, ""))
	})

	t.Run("garbage candidate", func(t *testing.T) {
		assert.False(t, auth.Verify(fields, "not-hex"))
	})

	for name := range fields {
		t.Run("tampered "+name, func(t *testing.T) {
			tampered := storehouse.SignedRequest{}
			for k, v := range fields {
				tampered[k] = v
			}
			tampered[name] = fields[name] + "x"
			assert.False(t, auth.Verify(tampered, sig))
		})
	}

	t.Run("added field", func(t *testing.T) {
		extra := storehouse.SignedRequest{"path": "a/b.txt", "url": "http://example.com/x", "mode": "1"}
		assert.False(t, auth.Verify(extra, sig))
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := storehouse.NewAuthenticator([]byte("other"), storehouse.AlgorithmSHA1)
		require.NoError(t, err)
		assert.False(t, other.Verify(fields, sig))
	})
}

func TestFieldsFromForm(t *testing.T) {
	form := url.Values{
		"path":      {"a/b.txt", "ignored"},
		"signature": {"abc"},
		"file":      {"raw"},
		"empty":     {},
	}

	got := storehouse.FieldsFromForm(form)

	assert.Equal(t, storehouse.SignedRequest{"path": "a/b.txt", "empty": ""}, got)
}
