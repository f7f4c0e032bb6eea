package service

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/catalog"
)

// ListRepos lists the installed plan repositories.
func (b *Base) ListRepos(ctx context.Context) ([]catalog.Repo, error) {
	return b.catalog.ListRepos(ctx)
}

// CreateRepo installs a plan repository. An empty name is derived from url.
func (b *Base) CreateRepo(ctx context.Context, name, url string) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		created, err := b.catalog.CreateRepo(ctx, name, url)
		if err != nil {
			return repoResult(err, created)
		}
		return Result{Success: true, Reason: "repo " + created + " created"}, nil
	})
}

// UpdateRepo pulls a cloned plan repository.
func (b *Base) UpdateRepo(ctx context.Context, name string) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		return repoResult(b.catalog.UpdateRepo(ctx, name), name)
	})
}

// DeleteRepo removes a plan repository.
func (b *Base) DeleteRepo(ctx context.Context, name string) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		return repoResult(b.catalog.DeleteRepo(name), name)
	})
}

func repoResult(err error, name string) (Result, error) {
	switch {
	case err == nil:
		return succeeded(), nil
	case errors.Is(err, catalog.ErrRepoNotFound):
		return failed("repo %s not found", name), nil
	case errors.Is(err, catalog.ErrRepoExists):
		return failed("repo %s already exists", name), nil
	case errors.Is(err, catalog.ErrGitUnavailable):
		return failed("repo operations require git"), nil
	default:
		return Result{}, err
	}
}

// ListProducts lists the products of the installed repositories.
func (b *Base) ListProducts(filter catalog.Filter) ([]catalog.Product, error) {
	return b.catalog.ListProducts(filter)
}

// DescribeProduct returns a product and its plan parameters. An unknown or
// ambiguous product is reported in the Result.
func (b *Base) DescribeProduct(name, repo, group string) (*catalog.ProductInfo, Result, error) {
	info, err := b.catalog.DescribeProduct(name, repo, group)
	switch {
	case err == nil:
		return info, succeeded(), nil
	case errors.Is(err, catalog.ErrProductNotFound):
		return nil, failed("product %s not found", name), nil
	case errors.Is(err, catalog.ErrProductAmbiguous):
		return nil, failed("product %s found in several places, specify repo or group", name), nil
	default:
		return nil, Result{}, err
	}
}
