// Package service provides the operations kvirt exposes on top of the
// loaded configuration: client selection, profiles, flavors, plan
// repositories and plan templates.
//
// Failures a caller may want to report and move past (an unknown profile, a
// missing repository, an ambiguous product) are returned as a Result with
// Success set to false. Everything else is returned as an error.
package service

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/catalog"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/git"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/plan"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/platform"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/profile"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/transaction"
)

// Result is the outcome of an operation that can fail without aborting the
// invocation.
type Result struct {
	Success bool
	Reason  string
}

func succeeded() Result {
	return Result{Success: true}
}

func failed(format string, args ...interface{}) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Options wires a Base.
type Options struct {
	Fs       afero.Fs
	Paths    store.Paths
	Client   string
	Detector platform.Detector
	// Git opens plan repositories. Nil means git is unavailable.
	Git git.Opener
	// Fetcher downloads on-the-fly baseplans.
	Fetcher plan.Fetcher
	// Overrides are applied to every plan render after the plan's own
	// parameters.
	Overrides map[string]interface{}
	// Lock serializes mutations through a lock file in the config home.
	Lock   bool
	Logger config.Logger
}

// Base is the loaded configuration and the services built on it.
type Base struct {
	state    *config.State
	fs       afero.Fs
	lock     bool
	profiles *profile.Manager
	catalog  *catalog.Catalog
	plans    *plan.Resolver
	logger   config.Logger
}

// New loads the configuration. Errors are fatal configuration errors.
func New(ctx context.Context, opts Options) (*Base, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := config.OrNop(opts.Logger)
	st := store.New(fs)

	state, err := config.Load(ctx, config.LoadOptions{
		Store:    st,
		Paths:    opts.Paths,
		Client:   opts.Client,
		Detector: opts.Detector,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Base{
		state:    state,
		fs:       fs,
		lock:     opts.Lock,
		profiles: profile.NewManager(st, state.ProfilesPath, state.Profiles, logger),
		catalog:  catalog.New(fs, opts.Paths.Plans(), opts.Git, logger),
		plans: plan.NewResolver(fs,
			plan.WithFetcher(opts.Fetcher),
			plan.WithOverrides(opts.Overrides),
			plan.WithLogger(logger)),
		logger: logger,
	}, nil
}

// State returns what was loaded at startup.
func (b *Base) State() *config.State {
	return b.state
}

// Settings returns the effective settings.
func (b *Base) Settings() *config.Settings {
	return b.state.Settings
}

// mutate runs fn under the mutation lock.
func (b *Base) mutate(ctx context.Context, fn func() (Result, error)) (Result, error) {
	if !b.lock {
		return fn()
	}
	lock, err := transaction.AcquireLock(ctx, b.fs, b.state.Paths.Home)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			b.logger.Warn("release lock", "error", err)
		}
	}()
	return fn()
}

// editConfig applies fn to the stored config document and writes it back
// when fn succeeds. Secrets are never substituted into the written document.
func (b *Base) editConfig(ctx context.Context, fn func(doc *document.Mapping) (Result, error)) (Result, error) {
	return b.mutate(ctx, func() (Result, error) {
		doc, err := config.ReadDocument(b.state.Store, b.state.Paths)
		if err != nil {
			return Result{}, err
		}
		if doc.Len() == 0 && b.state.Fabricated {
			doc = config.LocalDocument()
		}

		res, err := fn(doc)
		if err != nil || !res.Success {
			return res, err
		}
		if err := b.state.Store.Write(b.state.Paths.Config(), doc); err != nil {
			return Result{}, fmt.Errorf("write config: %w", err)
		}
		return res, nil
	})
}
