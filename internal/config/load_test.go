package config

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/platform"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
)

func newLoadFixture(t *testing.T, files map[string]string) (LoadOptions, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
	}
	return LoadOptions{
		Store:    store.New(fs),
		Paths:    store.Paths{Home: "/home/u/.kcli"},
		Detector: platform.StaticDetector{Info: &platform.Info{OS: "linux"}},
	}, fs
}

func TestLoad(t *testing.T) {
	t.Run("full configuration", func(t *testing.T) {
		opts, _ := newLoadFixture(t, map[string]string{
			"/home/u/.kcli/config.yml":   "default:\n  client: c\nc:\n  host: h\n  password: ?secret\n",
			"/home/u/.kcli/secrets.yml":  "c:\n  password: pw\n",
			"/home/u/.kcli/profiles.yml": "small:\n  numcpus: 1\n",
			"/home/u/.kcli/flavors.yml":  "tiny:\n  numcpus: 1\n  memory: 256\n",
			"/home/u/.kcli/plan":         "lab\n",
		})

		state, err := Load(context.Background(), opts)
		require.NoError(t, err)

		assert.False(t, state.Fabricated)
		assert.Equal(t, "c", state.Settings.Client)
		assert.Equal(t, "pw", state.Settings.String("password"))
		assert.Equal(t, []string{"small"}, state.Profiles.Keys())
		assert.Equal(t, []string{"tiny"}, state.Flavors.Keys())
		assert.Equal(t, "lab", state.CurrentPlan)
		assert.Equal(t, "/home/u/.kcli/profiles.yml", state.ProfilesPath)
	})

	t.Run("relocated stores and defaults", func(t *testing.T) {
		opts, _ := newLoadFixture(t, map[string]string{
			"/home/u/.kcli/config.yml": "default:\n  client: c\n  profiles: /etc/kcli/profiles.yml\nc: {}\n",
			"/etc/kcli/profiles.yml":   "p1: {}\n",
		})

		state, err := Load(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, "/etc/kcli/profiles.yml", state.ProfilesPath)
		assert.Equal(t, []string{"p1"}, state.Profiles.Keys())
		assert.Equal(t, 0, state.Flavors.Len())
		assert.Equal(t, DefaultPlan, state.CurrentPlan)
	})

	t.Run("missing secret", func(t *testing.T) {
		opts, _ := newLoadFixture(t, map[string]string{
			"/home/u/.kcli/config.yml": "default:\n  client: c\nc:\n  token: ?secret\n",
		})
		_, err := Load(context.Background(), opts)
		var missing *MissingSecretError
		assert.True(t, errors.As(err, &missing))
	})

	t.Run("malformed config", func(t *testing.T) {
		opts, _ := newLoadFixture(t, map[string]string{
			"/home/u/.kcli/config.yml": "default: [\n",
		})
		_, err := Load(context.Background(), opts)
		var docErr *store.DocumentError
		assert.True(t, errors.As(err, &docErr))
	})

	t.Run("no config and no hypervisor", func(t *testing.T) {
		opts, _ := newLoadFixture(t, nil)
		_, err := Load(context.Background(), opts)
		assert.ErrorIs(t, err, ErrNoConfiguration)
	})

	t.Run("no config with local hypervisor", func(t *testing.T) {
		opts, fs := newLoadFixture(t, nil)
		opts.Detector = platform.StaticDetector{Info: &platform.Info{LibvirtSocket: platform.DefaultLibvirtSocket}}

		state, err := Load(context.Background(), opts)
		require.NoError(t, err)
		assert.True(t, state.Fabricated)
		assert.Equal(t, "local", state.Settings.Client)
		assert.Equal(t, "kvm", state.Settings.Type)
		assert.Equal(t, "default", state.Settings.String("pool"))

		exists, err := afero.Exists(fs, "/home/u/.kcli/config.yml")
		require.NoError(t, err)
		assert.False(t, exists, "fabricated config is not persisted")
	})

	t.Run("detector failure", func(t *testing.T) {
		opts, _ := newLoadFixture(t, nil)
		opts.Detector = platform.StaticDetector{Err: errors.New("boom")}
		_, err := Load(context.Background(), opts)
		assert.ErrorContains(t, err, "boom")
	})
}

func TestReadDocumentKeepsMarkers(t *testing.T) {
	opts, _ := newLoadFixture(t, map[string]string{
		"/home/u/.kcli/config.yml":  "default:\n  client: c\nc:\n  password: ?secret\n",
		"/home/u/.kcli/secrets.yml": "c:\n  password: pw\n",
	})

	_, err := Load(context.Background(), opts)
	require.NoError(t, err)

	raw, err := ReadDocument(opts.Store, opts.Paths)
	require.NoError(t, err)
	section, _, err := raw.Child("c")
	require.NoError(t, err)
	v, _ := section.Get("password")
	assert.Equal(t, SecretMarker, v)
}
