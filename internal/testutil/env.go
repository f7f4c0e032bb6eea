// Package testutil provides utilities for testing kvirt in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
)

// SetupTestEnv points HOME and KCLI_HOME at a temporary directory so tests
// never read or write the user's configuration home. It returns the
// configuration home, which exists and is empty.
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, store.DefaultHomeDir)

	t.Setenv("HOME", tmpDir)
	t.Setenv(store.HomeEnv, home)

	if err := os.MkdirAll(home, 0o750); err != nil {
		t.Fatalf("failed to create test directory %s: %v", home, err)
	}
	return home
}

// WriteFiles writes every path → content pair to fs.
func WriteFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()

	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}
