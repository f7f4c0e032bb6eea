package service

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/profile"
)

// ListProfiles resolves every VM profile against the effective defaults.
func (b *Base) ListProfiles() ([]profile.Summary, error) {
	return profile.List(b.profiles.Profiles(), b.state.Settings)
}

// ListContainerProfiles lists the container profiles.
func (b *Base) ListContainerProfiles() ([]profile.ContainerSummary, error) {
	return profile.ListContainers(b.profiles.Profiles())
}

// ListFlavors lists the flavors of the flavor store.
func (b *Base) ListFlavors() ([]profile.Flavor, error) {
	return profile.ListFlavors(b.state.Flavors)
}

// CreateProfile adds a profile. Creating an existing profile succeeds
// without changing it.
func (b *Base) CreateProfile(ctx context.Context, name string, attrs map[string]interface{}) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		created, err := b.profiles.Create(name, attrs)
		if errors.Is(err, profile.ErrNoAttributes) {
			return failed("no attributes given for profile %s", name), nil
		}
		if err != nil {
			return Result{}, err
		}
		if !created {
			return Result{Success: true, Reason: "profile " + name + " already there"}, nil
		}
		return succeeded(), nil
	})
}

// UpdateProfile merges attrs into an existing profile.
func (b *Base) UpdateProfile(ctx context.Context, name string, attrs map[string]interface{}) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		return profileResult(b.profiles.Update(name, attrs), name)
	})
}

// DeleteProfile removes a profile.
func (b *Base) DeleteProfile(ctx context.Context, name string) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		return profileResult(b.profiles.Delete(name), name)
	})
}

func profileResult(err error, name string) (Result, error) {
	switch {
	case err == nil:
		return succeeded(), nil
	case errors.Is(err, profile.ErrProfileNotFound):
		return failed("profile %s not found", name), nil
	case errors.Is(err, profile.ErrNoAttributes):
		return failed("no attributes given for profile %s", name), nil
	default:
		return Result{}, err
	}
}
