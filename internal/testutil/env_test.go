package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	home := testutil.SetupTestEnv(t)

	if got := os.Getenv(store.HomeEnv); got != home {
		t.Errorf("%s = %q, want %q", store.HomeEnv, got, home)
	}

	paths, err := store.DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error: %v", err)
	}
	if paths.Home != home {
		t.Errorf("DefaultPaths().Home = %q, want %q", paths.Home, home)
	}

	info, err := os.Stat(home)
	if err != nil {
		t.Fatalf("home not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", home)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	var first, second string

	t.Run("first", func(t *testing.T) {
		first = testutil.SetupTestEnv(t)
	})
	t.Run("second", func(t *testing.T) {
		second = testutil.SetupTestEnv(t)
	})

	if first == second {
		t.Errorf("expected distinct homes, both were %q", first)
	}
}

func TestWriteFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/a/b/c.yml": "x: 1\n",
		"/d.yml":     "",
	})

	data, err := afero.ReadFile(fs, "/a/b/c.yml")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "x: 1\n" {
		t.Errorf("content = %q", data)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("/", "d.yml")); !ok {
		t.Error("/d.yml not written")
	}
}
