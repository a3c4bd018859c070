package storehouse_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	root := t.TempDir()

	tt := []struct {
		Name string
		Rel  string
		Want string
	}{
		{Name: "simple", Rel: "a.txt", Want: filepath.Join(root, "a.txt")},
		{Name: "nested", Rel: "a/b/c.txt", Want: filepath.Join(root, "a", "b", "c.txt")},
		{Name: "dot segments", Rel: "a/./b/../c.txt", Want: filepath.Join(root, "a", "c.txt")},
		{Name: "leading slash stays under root", Rel: "/a.txt", Want: filepath.Join(root, "a.txt")},
		{Name: "double slash", Rel: "a//b.txt", Want: filepath.Join(root, "a", "b.txt")},
		{Name: "escapes root", Rel: "../outside.txt", Want: filepath.Join(filepath.Dir(root), "outside.txt")},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := storehouse.ResolveTarget(root, tc.Rel)
			require.NoError(t, err)
			assert.Equal(t, tc.Want, got)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveTarget_RelativeRoot(t *testing.T) {
	got, err := storehouse.ResolveTarget("./", "x/y.txt")
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join("x", "y.txt"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveTarget_Empty(t *testing.T) {
	for _, rel := range []string{"", "   "} {
		_, err := storehouse.ResolveTarget(t.TempDir(), rel)
		require.Error(t, err)
		assert.ErrorIs(t, err, storehouse.ErrValidation)

		var se *storehouse.Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, storehouse.CodePathMissing, se.Code)
	}
}

func TestIsWithin(t *testing.T) {
	root := t.TempDir()

	assert.True(t, storehouse.IsWithin(root, filepath.Join(root, "a", "b")))
	assert.True(t, storehouse.IsWithin(root, root))
	assert.True(t, storehouse.IsWithin(root, filepath.Join(root, "..a")))
	assert.False(t, storehouse.IsWithin(root, filepath.Dir(root)))
	assert.False(t, storehouse.IsWithin(root, filepath.Join(filepath.Dir(root), "other")))
}
