package plan

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestResolveBaseplanPrecedence(t *testing.T) {
	const base = "parameters:\n  size: 10\n  color: blue\n"

	tests := []struct {
		name      string
		plan      string
		overrides map[string]interface{}
		wantSize  interface{}
	}{
		{
			name:     "inherited from base",
			plan:     "parameters:\n  baseplan: base.yml\nvm:\n  size: {{ size }}\n",
			wantSize: 10,
		},
		{
			name:     "document wins over base",
			plan:     "parameters:\n  baseplan: base.yml\n  size: 20\nvm:\n  size: {{ size }}\n",
			wantSize: 20,
		},
		{
			name:     "document declared before baseplan still wins",
			plan:     "parameters:\n  size: 20\n  baseplan: base.yml\nvm:\n  size: {{ size }}\n",
			wantSize: 20,
		},
		{
			name:      "caller override wins",
			plan:      "parameters:\n  baseplan: base.yml\n  size: 20\nvm:\n  size: {{ size }}\n",
			overrides: map[string]interface{}{"size": 99},
			wantSize:  99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := writeFiles(t, map[string]string{
				"/plans/base.yml":      base,
				"/plans/kcli_plan.yml": tt.plan,
			})
			r := NewResolver(fs)

			res, err := r.Resolve(context.Background(), Request{
				Plan:      "lab",
				Path:      "/plans/kcli_plan.yml",
				Overrides: tt.overrides,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, res.Overrides["size"])
			assert.Equal(t, "blue", res.Overrides["color"])
			assert.Equal(t, "lab", res.Overrides[PlanKey])
			assert.NotContains(t, res.Overrides, BaseplanKey)
			assert.Equal(t, "base.yml", res.BaseFile)
			assert.Equal(t, "/plans", res.BaseDir)
			assert.True(t, strings.HasPrefix(res.Rendered, "vm:\n"), "parameter block stripped: %q", res.Rendered)
		})
	}
}

func TestResolveDoesNotMutateCallerOverrides(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": "parameters:\n  a: 1\nx: {{ a }}\n"})
	overrides := map[string]interface{}{"b": 2}

	_, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml", Overrides: overrides})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"b": 2}, overrides)
}

func TestResolveRecursiveBaseplans(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/p/grand.yml":      "parameters:\n  size: 1\n  disk: 5\n  pool: slow\n",
		"/p/base/base.yml":  "parameters:\n  baseplan: ../grand.yml\n  size: 2\n",
		"/p/kcli_plan.yml":  "parameters:\n  baseplan: base/base.yml\n  pool: fast\n",
		"/p/unrelated.yaml": "",
	})

	res, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Overrides["size"], "nearest base wins")
	assert.Equal(t, 5, res.Overrides["disk"])
	assert.Equal(t, "fast", res.Overrides["pool"])
}

func TestResolveBaseplanCycle(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/p/a.yml":         "parameters:\n  baseplan: b.yml\n",
		"/p/b.yml":         "parameters:\n  baseplan: a.yml\n",
		"/p/kcli_plan.yml": "parameters:\n  baseplan: a.yml\n",
		"/p/self.yml":      "parameters:\n  baseplan: self.yml\n",
	})
	r := NewResolver(fs)

	_, err := r.Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml"})
	var cycle *BaseplanCycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Equal(t, []string{"/p/kcli_plan.yml", "/p/a.yml", "/p/b.yml", "/p/a.yml"}, cycle.Chain)

	_, err = r.Resolve(context.Background(), Request{Path: "/p/self.yml"})
	require.True(t, errors.As(err, &cycle), "got %v", err)
}

func TestResolveMissingBaseplan(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": "parameters:\n  baseplan: ghost.yml\n"})
	_, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml"})

	var missing *MissingInputFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "/p/ghost.yml", missing.Path)
}

func TestResolveModes(t *testing.T) {
	const doc = "parameters:\n  memory: 512\nvm:\n  memory: {{ memory }}\n  image: {{ image }}\n"
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": doc})
	r := NewResolver(fs)

	t.Run("strict fails on unset variable", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml", Mode: Strict})
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr), "got %v", err)
		assert.Equal(t, "/p/kcli_plan.yml", renderErr.File)
		assert.Greater(t, renderErr.Line, 0)
		assert.Contains(t, renderErr.Message, "image")
	})

	t.Run("lenient renders empty", func(t *testing.T) {
		res, err := r.Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml", Mode: Lenient})
		require.NoError(t, err)
		assert.Contains(t, res.Rendered, "memory: 512")
		assert.Contains(t, res.Rendered, "image: \n")
	})

	t.Run("strict succeeds once the variable is supplied", func(t *testing.T) {
		res, err := r.Resolve(context.Background(), Request{
			Path:      "/p/kcli_plan.yml",
			Overrides: map[string]interface{}{"image": "centos8"},
		})
		require.NoError(t, err)
		assert.Contains(t, res.Rendered, "image: centos8")
	})
}

func TestResolveSyntaxError(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": "vm:\n  memory: 512\n  {% frobnicate %}\n"})
	_, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml"})

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr), "got %v", err)
	assert.Equal(t, 3, renderErr.Line)
	assert.Contains(t, renderErr.Message, "frobnicate")
}

func TestResolveDownloadMode(t *testing.T) {
	const doc = "parameters:\n  wait: false\n  disconnected: false\n  count: 0\n" +
		"x: {{ wait }} {{ disconnected }} {{ count }}\n"
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": doc})

	res, err := NewResolver(fs).Resolve(context.Background(), Request{
		Path:      "/p/kcli_plan.yml",
		Download:  true,
		Overrides: map[string]interface{}{"disconnected": false},
	})
	require.NoError(t, err)
	assert.Equal(t, true, res.Overrides["wait"])
	assert.Equal(t, false, res.Overrides["disconnected"], "caller overrides are not forced")
	assert.Equal(t, 0, res.Overrides["count"])
}

func TestResolvePersistentOverrides(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": "parameters:\n  pool: a\n  plan: x\nv: {{ pool }}-{{ plan }}\n"})
	r := NewResolver(fs, WithOverrides(map[string]interface{}{"pool": "b"}))

	res, err := r.Resolve(context.Background(), Request{
		Plan:      "lab",
		Path:      "/p/kcli_plan.yml",
		Overrides: map[string]interface{}{"pool": "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "b", res.Overrides["pool"])
	assert.Equal(t, "lab", res.Overrides[PlanKey])
	assert.Contains(t, res.Rendered, "v: b-lab")
}

func TestResolveFull(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/p/kcli_plan.yml": "parameters:\n  memory: 1024\nvm2:\n  memory: {{ memory }}\nvm1:\n  memory: 2\n",
	})

	res, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml", Full: true})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Empty(t, res.Rendered)
	assert.Equal(t, []string{"parameters", "vm2", "vm1"}, res.Data.Keys())

	vm, _, err := res.Data.Child("vm2")
	require.NoError(t, err)
	memory, _ := vm.Get("memory")
	assert.Equal(t, 1024, memory)
}

func TestResolveInputErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(t *testing.T, err error)
	}{
		{
			name: "parameters not a mapping",
			doc:  "parameters:\n  - a\n  - b\n",
			check: func(t *testing.T, err error) {
				var notDict *NotADictError
				require.True(t, errors.As(err, &notDict), "got %v", err)
				assert.Equal(t, "sequence", notDict.Kind)
			},
		},
		{
			name: "empty parameters",
			doc:  "parameters:\nvm: {}\n",
			check: func(t *testing.T, err error) {
				var notDict *NotADictError
				require.True(t, errors.As(err, &notDict), "got %v", err)
			},
		},
		{
			name: "unparsable parameters",
			doc:  "parameters:\n  a: [1, 2\n",
			check: func(t *testing.T, err error) {
				var parseErr *TemplateParseError
				require.True(t, errors.As(err, &parseErr), "got %v", err)
			},
		},
		{
			name: "baseplan not a string",
			doc:  "parameters:\n  baseplan: [a]\n",
			check: func(t *testing.T, err error) {
				var parseErr *TemplateParseError
				require.True(t, errors.As(err, &parseErr), "got %v", err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": tt.doc})
			_, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml"})
			tt.check(t, err)
		})
	}
}

func TestResolveMissingInput(t *testing.T) {
	_, err := NewResolver(afero.NewMemMapFs()).Resolve(context.Background(), Request{})
	var missing *MissingInputFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, DefaultPlanFile, missing.Path)
}

type fakeFetcher struct {
	fs    afero.Fs
	files map[string]string
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, destDir string) (string, error) {
	f.urls = append(f.urls, url)
	content, ok := f.files[url]
	if !ok {
		return "", errors.New("not found")
	}
	dest := path.Join(destDir, path.Base(url))
	return dest, afero.WriteFile(f.fs, dest, []byte(content), 0o644)
}

func TestResolveOnfly(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/p/kcli_plan.yml": "parameters:\n  baseplan: base.yml\n"})
	fetcher := &fakeFetcher{fs: fs, files: map[string]string{
		"https://example.com/plans/base.yml": "parameters:\n  size: 10\n",
	}}
	r := NewResolver(fs, WithFetcher(fetcher))

	res, err := r.Resolve(context.Background(), Request{
		Path:  "/p/kcli_plan.yml",
		Onfly: "https://example.com/plans/",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/plans/base.yml"}, fetcher.urls)
	assert.Equal(t, 10, res.Overrides["size"])

	t.Run("without fetcher", func(t *testing.T) {
		_, err := NewResolver(fs).Resolve(context.Background(), Request{Path: "/p/kcli_plan.yml", Onfly: "https://example.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no fetcher")
	})
}

func TestDescribe(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/p/base.yml":      "parameters:\n  size: 10\n",
		"/p/kcli_plan.yml": "parameters:\n  baseplan: base.yml\n  pool: fast\nvm: {}\n",
		"/p/none.yml":      "vm: {}\n",
	})
	r := NewResolver(fs)

	info, err := r.Describe(context.Background(), "/p/kcli_plan.yml", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"baseplan", "pool"}, info.Parameters.Keys())
	require.NotNil(t, info.Base)
	assert.Equal(t, "/p/base.yml", info.Base.Path)
	assert.Equal(t, []string{"size"}, info.Base.Parameters.Keys())
	assert.Nil(t, info.Base.Base)

	info, err = r.Describe(context.Background(), "/p/none.yml", "")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Parameters.Len())
}
