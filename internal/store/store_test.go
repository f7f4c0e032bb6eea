package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

func TestPaths(t *testing.T) {
	p := Paths{Home: "/home/u/.kcli"}

	assert.Equal(t, "/home/u/.kcli/config.yml", p.Config())
	assert.Equal(t, "/home/u/.kcli/secrets.yml", p.Secrets())
	assert.Equal(t, "/home/u/.kcli/profiles.yml", p.Profiles())
	assert.Equal(t, "/home/u/.kcli/flavors.yml", p.Flavors())
	assert.Equal(t, "/home/u/.kcli/plan", p.CurrentPlan())
	assert.Equal(t, "/home/u/.kcli/plans/upstream", p.Repo("upstream"))
}

func TestDefaultPathsHonorsEnv(t *testing.T) {
	t.Setenv(HomeEnv, "/srv/kcli")
	p, err := DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, "/srv/kcli", p.Home)
}

func TestExpand(t *testing.T) {
	assert.Equal(t, "/abs/path", Expand("/abs/path"))
	assert.Equal(t, "relative", Expand("relative"))
	assert.Equal(t, "~user/x", Expand("~user/x"))
	assert.True(t, filepath.IsAbs(Expand("~/x")))
}

func TestStoreReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	t.Run("missing file", func(t *testing.T) {
		_, err := s.Read("/nope.yml")
		require.Error(t, err)

		m, err := s.ReadOptional("/nope.yml")
		require.NoError(t, err)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("write then read", func(t *testing.T) {
		m := document.NewMapping()
		m.Set("second", 2)
		m.Set("first", 1)
		require.NoError(t, s.Write("/home/.kcli/profiles.yml", m))

		got, err := s.Read("/home/.kcli/profiles.yml")
		require.NoError(t, err)
		assert.Equal(t, []string{"second", "first"}, got.Keys())

		entries, err := afero.ReadDir(fs, "/home/.kcli")
		require.NoError(t, err)
		require.Len(t, entries, 1, "temporary file left behind")
		assert.Equal(t, "profiles.yml", entries[0].Name())
	})

	t.Run("parse failure", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/bad.yml", []byte("a: [1\n"), 0o600))
		_, err := s.ReadOptional("/bad.yml")
		var docErr *DocumentError
		require.True(t, errors.As(err, &docErr))
		assert.Equal(t, "/bad.yml", docErr.Path)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/gone.yml", []byte("a: 1\n"), 0o600))
		require.NoError(t, s.Remove("/gone.yml"))
		require.NoError(t, s.Remove("/gone.yml"))
		ok, err := s.Exists("/gone.yml")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
