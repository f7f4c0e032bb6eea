package profile

import (
	"fmt"
	"sort"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
)

// Manager edits the profile store and persists it after every change.
type Manager struct {
	store    *store.Store
	path     string
	profiles *document.Mapping
	logger   config.Logger
}

// NewManager returns a manager over profiles, persisted at path.
func NewManager(st *store.Store, path string, profiles *document.Mapping, logger config.Logger) *Manager {
	if profiles == nil {
		profiles = document.NewMapping()
	}
	return &Manager{
		store:    st,
		path:     path,
		profiles: profiles,
		logger:   config.OrNop(logger),
	}
}

// Profiles returns the managed store.
func (m *Manager) Profiles() *document.Mapping {
	return m.profiles
}

// Create adds a profile. An existing profile is left as is and reported
// with created == false.
func (m *Manager) Create(name string, attrs map[string]interface{}) (created bool, err error) {
	if m.profiles.Has(name) {
		m.logger.Info("profile already there", "profile", name)
		return false, nil
	}
	if len(attrs) == 0 {
		return false, ErrNoAttributes
	}

	m.profiles.Set(name, document.FromMap(attrs))
	if err := m.persist(); err != nil {
		m.profiles.Delete(name)
		return false, err
	}
	m.logger.Debug("profile created", "profile", name, "path", m.path)
	return true, nil
}

// Update merges attrs into an existing profile.
func (m *Manager) Update(name string, attrs map[string]interface{}) error {
	if !m.profiles.Has(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if len(attrs) == 0 {
		return ErrNoAttributes
	}

	profile, _, err := m.profiles.Child(name)
	if err != nil {
		return &AttributeError{Profile: name, Err: err}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		profile.Set(k, attrs[k])
	}

	if err := m.persist(); err != nil {
		return err
	}
	m.logger.Debug("profile updated", "profile", name, "keys", keys)
	return nil
}

// Delete removes a profile. Removing the last profile removes the store
// document.
func (m *Manager) Delete(name string) error {
	if !m.profiles.Delete(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if m.profiles.Len() == 0 {
		return m.store.Remove(m.path)
	}
	return m.persist()
}

func (m *Manager) persist() error {
	if err := m.store.Write(m.path, m.profiles); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}
