package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// ErrSymlinkUnsupported is returned when the filesystem cannot create
// symlinks.
var ErrSymlinkUnsupported = errors.New("filesystem does not support symlinks")

// IsRemote reports whether url is cloned rather than linked.
func IsRemote(url string) bool {
	return strings.HasPrefix(url, "http") || strings.HasPrefix(url, "git")
}

// RepoName derives a repository name from its url.
func RepoName(url string) string {
	return strings.TrimSuffix(path.Base(strings.TrimSuffix(filepath.ToSlash(url), "/")), ".git")
}

// CreateRepo installs url as repository name. Remote urls are cloned, local
// directories are linked. When the repository has no top level KMETA, the
// first one found below it is linked there.
func (c *Catalog) CreateRepo(ctx context.Context, name, url string) (string, error) {
	if name == "" {
		name = RepoName(url)
	}
	dir := c.repoDir(name)
	if exists, _ := afero.Exists(c.fs, dir); exists {
		return name, fmt.Errorf("%w: %s", ErrRepoExists, name)
	}
	if err := c.fs.MkdirAll(c.root, 0o755); err != nil {
		return name, fmt.Errorf("create %s: %w", c.root, err)
	}

	if IsRemote(url) {
		if c.openGit == nil {
			return name, ErrGitUnavailable
		}
		if err := c.openGit(dir).Clone(ctx, url); err != nil {
			return name, err
		}
	} else {
		target := url
		if abs, err := filepath.Abs(url); err == nil {
			target = abs
		}
		if err := c.symlink(target, dir); err != nil {
			return name, err
		}
	}

	if err := c.linkMeta(dir); err != nil {
		return name, err
	}
	c.logger.Info("repo created", "repo", name, "url", url)
	return name, nil
}

func (c *Catalog) linkMeta(dir string) error {
	if exists, _ := afero.Exists(c.fs, filepath.Join(dir, MetaFile)); exists {
		return nil
	}
	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(c.fs, dir)), "**/"+MetaFile)
	if err != nil {
		return fmt.Errorf("search %s in %s: %w", MetaFile, dir, err)
	}
	if len(matches) == 0 {
		c.logger.Warn("repo has no product metadata", "dir", dir)
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := strings.Count(matches[i], "/"), strings.Count(matches[j], "/")
		if di != dj {
			return di < dj
		}
		return matches[i] < matches[j]
	})
	return c.symlink(filepath.FromSlash(matches[0]), filepath.Join(dir, MetaFile))
}

func (c *Catalog) symlink(oldname, newname string) error {
	linker, ok := c.fs.(afero.Linker)
	if !ok {
		return ErrSymlinkUnsupported
	}
	if err := linker.SymlinkIfPossible(oldname, newname); err != nil {
		return fmt.Errorf("link %s to %s: %w", newname, oldname, err)
	}
	return nil
}

// UpdateRepo pulls a cloned repository. Linked repositories are left alone.
func (c *Catalog) UpdateRepo(ctx context.Context, name string) error {
	dir := c.repoDir(name)
	if exists, _ := afero.DirExists(c.fs, dir); !exists {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}
	if c.openGit == nil {
		return ErrGitUnavailable
	}
	client := c.openGit(dir)
	isRepo, err := client.IsGitRepo(ctx)
	if err != nil {
		return err
	}
	if !isRepo {
		c.logger.Debug("repo is not a git clone, nothing to update", "repo", name)
		return nil
	}
	return client.Pull(ctx)
}

// DeleteRepo removes a repository. A linked repository only loses its link.
func (c *Catalog) DeleteRepo(name string) error {
	dir := c.repoDir(name)
	if exists, _ := afero.DirExists(c.fs, dir); !exists {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}
	if c.isSymlink(dir) {
		return c.fs.Remove(dir)
	}
	if err := c.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

func (c *Catalog) isSymlink(path string) bool {
	lstater, ok := c.fs.(afero.Lstater)
	if !ok {
		return false
	}
	fi, lstatCalled, err := lstater.LstatIfPossible(path)
	return err == nil && lstatCalled && fi.Mode()&os.ModeSymlink != 0
}
