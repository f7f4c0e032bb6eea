// Package store locates and persists the kvirt documents kept under the
// configuration home (~/.kcli by default).
package store

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultHomeDir is the configuration home relative to the user's home.
	DefaultHomeDir = ".kcli"

	// HomeEnv overrides the configuration home when set.
	HomeEnv = "KCLI_HOME"

	ConfigFile   = "config.yml"
	SecretsFile  = "secrets.yml"
	ProfilesFile = "profiles.yml"
	FlavorsFile  = "flavors.yml"
	PlanFile     = "plan"
	PlansDir     = "plans"
)

// Paths is the well-known file layout under a configuration home.
type Paths struct {
	Home string
}

// DefaultPaths returns the layout rooted at $KCLI_HOME or ~/.kcli.
func DefaultPaths() (Paths, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return Paths{Home: home}, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{Home: filepath.Join(userHome, DefaultHomeDir)}, nil
}

func (p Paths) Config() string      { return filepath.Join(p.Home, ConfigFile) }
func (p Paths) Secrets() string     { return filepath.Join(p.Home, SecretsFile) }
func (p Paths) Profiles() string    { return filepath.Join(p.Home, ProfilesFile) }
func (p Paths) Flavors() string     { return filepath.Join(p.Home, FlavorsFile) }
func (p Paths) CurrentPlan() string { return filepath.Join(p.Home, PlanFile) }
func (p Paths) Plans() string       { return filepath.Join(p.Home, PlansDir) }

// Repo returns the directory of a named plan repository.
func (p Paths) Repo(name string) string {
	return filepath.Join(p.Plans(), name)
}

// Expand replaces a leading ~ with the user's home directory.
func Expand(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
