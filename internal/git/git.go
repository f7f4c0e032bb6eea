// Package git provides an interface-based wrapper for the Git operations
// plan repositories need, with context support and proper error handling.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	gogit "github.com/go-git/go-git/v5"
)

// Common Git errors
var (
	ErrNotAGitRepo  = errors.New("not a git repository")
	ErrInvalidRepo  = errors.New("invalid git repository")
	ErrEmptyURL     = errors.New("repository url cannot be empty")
	ErrCloneFailed  = errors.New("git clone failed")
	ErrNoRemote     = errors.New("repository has no origin remote")
	ErrDiverged     = errors.New("local clone has diverged from its origin")
	ErrTargetExists = errors.New("clone target already exists")
)

// OriginRemote is the remote repositories are cloned from and pulled against.
const OriginRemote = "origin"

// Git is the interface for Git operations on one repository.
// Following Go best practices: accept interfaces, return structs.
type Git interface {
	Clone(ctx context.Context, url string) error
	Pull(ctx context.Context) error
	RemoteURL(ctx context.Context) (string, error)
	GetHeadCommit(ctx context.Context) (string, error)
	IsGitRepo(ctx context.Context) (bool, error)
}

// Opener returns a Git client for the repository at path.
type Opener func(path string) Git

// Client implements the Git interface.
type Client struct {
	repoPath string // Path to the git repository
}

// NewClient creates a new Git client for the given repository path.
func NewClient(repoPath string) *Client {
	return &Client{
		repoPath: repoPath,
	}
}

// Open is an Opener backed by go-git.
func Open(path string) Git {
	return NewClient(path)
}

// Clone clones url into the client's path. The path must not exist yet; a
// failed clone leaves nothing behind.
func (c *Client) Clone(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if url == "" {
		return ErrEmptyURL
	}
	if _, err := os.Lstat(c.repoPath); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, c.repoPath)
	}

	_, err := gogit.PlainCloneContext(ctx, c.repoPath, false, &gogit.CloneOptions{
		URL:        url,
		RemoteName: OriginRemote,
	})
	if err != nil {
		_ = os.RemoveAll(c.repoPath)
		return fmt.Errorf("%w: %s: %s", ErrCloneFailed, url, err.Error())
	}
	return nil
}

// Pull fast-forwards the current branch from origin. Being up to date is
// not an error.
func (c *Client) Pull(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{RemoteName: OriginRemote})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		return fmt.Errorf("%w: %s", ErrDiverged, c.repoPath)
	default:
		return fmt.Errorf("pull %s: %w", c.repoPath, err)
	}
}

// RemoteURL returns the first URL of the origin remote.
func (c *Client) RemoteURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return "", err
	}

	remote, err := repo.Remote(OriginRemote)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", ErrNoRemote
	}
	if err != nil {
		return "", fmt.Errorf("get remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoRemote
	}
	return urls[0], nil
}

// GetHeadCommit returns the commit hash of HEAD using go-git.
func (c *Client) GetHeadCommit(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// IsGitRepo checks if the path is a valid git repository.
// Returns (true, nil) if valid, (false, nil) if not exists, (false, err) if corrupted.
func (c *Client) IsGitRepo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	_, err := gogit.PlainOpen(c.repoPath)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidRepo, err.Error())
	}
	return true, nil
}

func (c *Client) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(c.repoPath)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotAGitRepo, c.repoPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}
