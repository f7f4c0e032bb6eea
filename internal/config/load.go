package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/platform"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
)

// DefaultPlan is the plan name used when no current plan is recorded.
const DefaultPlan = "kvirt"

// Keys of the default section that relocate the profile and flavor stores.
const (
	ProfilesKey = "profiles"
	FlavorsKey  = "flavors"
)

// LoadOptions controls Load.
type LoadOptions struct {
	Store    *store.Store
	Paths    store.Paths
	Client   string
	Detector platform.Detector
	Logger   Logger
}

// State is everything read at startup.
type State struct {
	Paths store.Paths
	Store *store.Store

	// Document is the config document with secrets substituted. It must not
	// be written back; mutations start from ReadDocument instead.
	Document *document.Mapping
	Settings *Settings

	// Fabricated is true when no config document existed and a local client
	// was assumed.
	Fabricated bool

	Profiles     *document.Mapping
	ProfilesPath string
	Flavors      *document.Mapping
	FlavorsPath  string

	CurrentPlan string
}

// Load reads the secret store and the config document, substitutes secret
// markers, resolves the effective settings and loads the profile and flavor
// stores.
func Load(ctx context.Context, opts LoadOptions) (*State, error) {
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	st := opts.Store
	if st == nil {
		st = store.New(nil)
	}

	secrets, err := st.ReadOptional(opts.Paths.Secrets())
	if err != nil {
		return nil, err
	}

	doc, fabricated, err := readOrFabricate(ctx, st, opts.Paths, opts.Detector, logger)
	if err != nil {
		return nil, err
	}

	if err := ResolveSecrets(doc, secrets); err != nil {
		return nil, err
	}

	settings, err := Resolve(doc, ResolveOptions{Client: opts.Client, Logger: logger})
	if err != nil {
		return nil, err
	}

	state := &State{
		Paths:       opts.Paths,
		Store:       st,
		Document:    doc,
		Settings:    settings,
		Fabricated:  fabricated,
		CurrentPlan: DefaultPlan,
	}

	def, _, _ := doc.Child(DefaultSection)
	state.ProfilesPath = storePath(def, ProfilesKey, opts.Paths.Profiles())
	state.FlavorsPath = storePath(def, FlavorsKey, opts.Paths.Flavors())

	if state.Profiles, err = st.ReadOptional(state.ProfilesPath); err != nil {
		return nil, err
	}
	if state.Flavors, err = st.ReadOptional(state.FlavorsPath); err != nil {
		return nil, err
	}

	plan, err := afero.ReadFile(st.Fs(), opts.Paths.CurrentPlan())
	switch {
	case err == nil:
		if name := strings.TrimSpace(string(plan)); name != "" {
			state.CurrentPlan = name
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read current plan: %w", err)
	}

	logger.Debug("configuration loaded",
		"client", settings.Client,
		"profiles", state.Profiles.Len(),
		"flavors", state.Flavors.Len(),
		"plan", state.CurrentPlan)
	return state, nil
}

// ReadDocument reads the config document as stored, without secret
// substitution. A missing document yields an empty mapping.
func ReadDocument(st *store.Store, paths store.Paths) (*document.Mapping, error) {
	return st.ReadOptional(paths.Config())
}

func readOrFabricate(ctx context.Context, st *store.Store, paths store.Paths, detector platform.Detector, logger Logger) (*document.Mapping, bool, error) {
	exists, err := st.Exists(paths.Config())
	if err != nil {
		return nil, false, err
	}
	if exists {
		doc, err := st.Read(paths.Config())
		return doc, false, err
	}

	if detector == nil {
		detector = platform.NewDetector()
	}
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("detect local hypervisor: %w", err)
	}
	if !info.HasLocalHypervisor() {
		return nil, false, ErrNoConfiguration
	}

	logger.Info("no configuration found, using local hypervisor", "socket", info.LibvirtSocket)
	return LocalDocument(), true, nil
}

// LocalDocument is the document assumed when only a local hypervisor is
// available.
func LocalDocument() *document.Mapping {
	def := document.NewMapping()
	def.Set(ClientKey, LocalClient)

	local := document.NewMapping()
	local.Set("pool", "default")
	local.Set("type", DefaultType)

	doc := document.NewMapping()
	doc.Set(DefaultSection, def)
	doc.Set(LocalClient, local)
	return doc
}

func storePath(def *document.Mapping, key, fallback string) string {
	raw, _ := def.Get(key)
	if s, ok := raw.(string); ok && s != "" {
		return store.Expand(s)
	}
	return fallback
}
