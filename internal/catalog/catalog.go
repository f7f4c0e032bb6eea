// Package catalog lists the plan repositories installed under the plans
// directory and the products their KMETA documents publish.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/schema"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/git"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/plan"
)

// MetaFile is the document a repository lists its products in.
const MetaFile = "KMETA"

var (
	ErrRepoNotFound     = errors.New("repo not found")
	ErrRepoExists       = errors.New("repo already exists")
	ErrGitUnavailable   = errors.New("repo operations require git")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductAmbiguous = errors.New("product found in several places, specify repo or group")
)

// Repo is an installed plan repository.
type Repo struct {
	Name string
	// URL is the origin of a cloned repository, empty otherwise.
	URL string
	// Commit is the checked out commit of a cloned repository.
	Commit string
}

// Product is one entry of a repository's KMETA document.
type Product struct {
	Name string
	Repo string
	// File is the plan document, relative to the repository.
	File string
	// Group is the first path element of File, empty for top level plans.
	Group string
	// RealDir is set when KMETA is a symlink: the directory of its target,
	// which File is relative to.
	RealDir     string
	Description string
	Image       string
	Comments    string
	NumVMs      int
	Extra       map[string]interface{}
}

// Filter restricts a product listing. Empty fields match everything.
type Filter struct {
	Repo  string
	Group string
}

func (f Filter) match(p Product) bool {
	return (f.Repo == "" || p.Repo == f.Repo) && (f.Group == "" || p.Group == f.Group)
}

// ProductInfo is a product together with its plan's parameters.
type ProductInfo struct {
	Product
	PlanPath   string
	Parameters *document.Mapping
}

// Catalog works on the repositories under root.
type Catalog struct {
	fs      afero.Fs
	root    string
	openGit git.Opener
	logger  config.Logger
}

// New returns a catalog over root. A nil opener means no git is available.
func New(fs afero.Fs, root string, opener git.Opener, logger config.Logger) *Catalog {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Catalog{
		fs:      fs,
		root:    root,
		openGit: opener,
		logger:  config.OrNop(logger),
	}
}

// repoNames returns the sorted names of the directories under root,
// following symlinks.
func (c *Catalog) repoNames() ([]string, error) {
	exists, err := afero.DirExists(c.fs, c.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", c.root, err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(c.fs, c.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.root, err)
	}
	var names []string
	for _, entry := range entries {
		fi, err := c.fs.Stat(filepath.Join(c.root, entry.Name()))
		if err != nil || !fi.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListRepos returns the installed repositories sorted by name.
func (c *Catalog) ListRepos(ctx context.Context) ([]Repo, error) {
	names, err := c.repoNames()
	if err != nil {
		return nil, err
	}

	repos := make([]Repo, 0, len(names))
	for _, name := range names {
		repo := Repo{Name: name}
		if c.openGit != nil {
			client := c.openGit(c.repoDir(name))
			if url, err := client.RemoteURL(ctx); err == nil {
				repo.URL = url
				repo.Commit, _ = client.GetHeadCommit(ctx)
			} else if !errors.Is(err, git.ErrNotAGitRepo) && !errors.Is(err, git.ErrNoRemote) {
				c.logger.Warn("cannot read repo origin", "repo", name, "error", err)
			}
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// ListProducts scans every repository's KMETA document. Documents that
// cannot be parsed are skipped with a warning.
func (c *Catalog) ListProducts(filter Filter) ([]Product, error) {
	names, err := c.repoNames()
	if err != nil {
		return nil, err
	}

	var products []Product
	for _, name := range names {
		if filter.Repo != "" && filter.Repo != name {
			continue
		}
		repoProducts, err := c.readMeta(name)
		if err != nil {
			c.logger.Warn("skipping unparsable repo metadata", "repo", name, "error", err)
			continue
		}
		for _, p := range repoProducts {
			if filter.match(p) {
				products = append(products, p)
			}
		}
	}
	return products, nil
}

func (c *Catalog) readMeta(repo string) ([]Product, error) {
	metaPath := filepath.Join(c.repoDir(repo), MetaFile)
	exists, err := afero.Exists(c.fs, metaPath)
	if err != nil || !exists {
		return nil, err
	}

	data, err := afero.ReadFile(c.fs, metaPath)
	if err != nil {
		return nil, err
	}
	var entries []map[string]interface{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	realDir := c.linkDir(metaPath)
	products := make([]Product, 0, len(entries))
	for i, entry := range entries {
		p, err := newProduct(repo, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		p.RealDir = realDir
		products = append(products, p)
	}
	return products, nil
}

// linkDir returns the directory of path's symlink target, or "" when path
// is not a symlink.
func (c *Catalog) linkDir(path string) string {
	if !c.isSymlink(path) {
		return ""
	}
	reader, ok := c.fs.(afero.LinkReader)
	if !ok {
		return ""
	}
	target, err := reader.ReadlinkIfPossible(path)
	if err != nil {
		c.logger.Warn("cannot read symlink", "path", path, "error", err)
		return ""
	}
	if dir := filepath.Dir(target); dir != "." {
		return dir
	}
	return ""
}

var numVMsChecker = schema.ForceInt()

func newProduct(repo string, entry map[string]interface{}) (Product, error) {
	p := Product{Repo: repo, File: plan.DefaultPlanFile, Extra: map[string]interface{}{}}
	for key, value := range entry {
		switch key {
		case "name":
			p.Name = fmt.Sprint(value)
		case "file":
			p.File = fmt.Sprint(value)
		case "description":
			p.Description = fmt.Sprint(value)
		case "image":
			p.Image = fmt.Sprint(value)
		case "comments":
			p.Comments = fmt.Sprint(value)
		case "numvms":
			n, err := numVMsChecker.Coerce(value, []string{"numvms"})
			if err != nil {
				return Product{}, err
			}
			p.NumVMs = n.(int)
		default:
			p.Extra[key] = value
		}
	}
	if p.Name == "" {
		return Product{}, errors.New("product has no name")
	}
	if i := strings.Index(p.File, "/"); i >= 0 {
		p.Group = p.File[:i]
	}
	return p, nil
}

// FindProduct returns the single product called name. Empty repo and group
// match everything.
func (c *Catalog) FindProduct(name, repo, group string) (Product, error) {
	products, err := c.ListProducts(Filter{Repo: repo, Group: group})
	if err != nil {
		return Product{}, err
	}
	var found []Product
	for _, p := range products {
		if p.Name == name {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	case 1:
		return found[0], nil
	default:
		return Product{}, fmt.Errorf("%w: %s", ErrProductAmbiguous, name)
	}
}

// DescribeProduct returns a product and the parameters of its plan.
func (c *Catalog) DescribeProduct(name, repo, group string) (*ProductInfo, error) {
	p, err := c.FindProduct(name, repo, group)
	if err != nil {
		return nil, err
	}
	path := c.ProductPlanPath(p)
	params, err := plan.ReadParameters(c.fs, path)
	if err != nil {
		return nil, err
	}
	return &ProductInfo{Product: p, PlanPath: path, Parameters: params}, nil
}

// ProductPlanPath returns the plan document of p.
func (c *Catalog) ProductPlanPath(p Product) string {
	if filepath.IsAbs(p.RealDir) {
		return filepath.Join(p.RealDir, p.File)
	}
	return filepath.Join(c.repoDir(p.Repo), p.RealDir, p.File)
}

func (c *Catalog) repoDir(name string) string {
	return filepath.Join(c.root, name)
}
