package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/schema"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

const (
	// DefaultSection is the reserved section holding global defaults.
	DefaultSection = "default"

	// ClientKey names the active client inside the default section.
	ClientKey = "client"

	// LocalClient is used when the default section names no client.
	LocalClient = "local"

	// AllClients selects every enabled client.
	AllClients = "all"
)

// Connection defaults for a client section.
const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 22
	DefaultUser     = "root"
	DefaultProtocol = "ssh"
	DefaultType     = "kvm"
)

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	// Client overrides default.client. It may be "all" or a comma-separated
	// list.
	Client string

	Logger Logger
}

// Settings is the effective configuration for one invocation. It is built
// once by Resolve and never modified afterwards.
type Settings struct {
	// Client is the selected primary client.
	Client string
	// ExtraClients are the additional clients of a multi-client selection.
	ExtraClients []string
	// Clients lists every client section in document order.
	Clients []string
	// DefaultClient is the client named by the default section.
	DefaultClient string

	Host     string
	Port     int
	User     string
	Protocol string
	Type     string
	URL      string
	Enabled  bool
	CPUFlags []interface{}

	defaults  map[string]interface{}
	options   map[string]interface{}
	section   map[string]interface{}
	overrides map[string]interface{}
}

// Normalize makes doc carry a default section with an active client:
//   - a document with a single section and no default section gets a
//     default section pointing at it
//   - a default section without a client selects "local", creating an empty
//     "local" section when needed
//
// Only top-level entries of doc are replaced; nested mappings are copied
// before being changed.
func Normalize(doc *document.Mapping) error {
	def, ok, err := doc.Child(DefaultSection)
	if err != nil {
		return &SectionError{Section: DefaultSection, Err: err}
	}

	if !ok {
		keys := doc.Keys()
		if len(keys) != 1 {
			return ErrMissingDefault
		}
		def = document.NewMapping()
		def.Set(ClientKey, keys[0])
		doc.Prepend(DefaultSection, def)
		return nil
	}

	if client, _ := def.Get(ClientKey); client == nil {
		def = def.Copy()
		def.Set(ClientKey, LocalClient)
		doc.Set(DefaultSection, def)
		if !doc.Has(LocalClient) {
			doc.Set(LocalClient, document.NewMapping())
		}
	}
	return nil
}

// ClientNames returns the client sections of doc in document order.
func ClientNames(doc *document.Mapping) []string {
	var names []string
	for _, k := range doc.Keys() {
		if k != DefaultSection {
			names = append(names, k)
		}
	}
	return names
}

// Resolve computes the effective settings of doc. doc is not modified.
func Resolve(doc *document.Mapping, opts ResolveOptions) (*Settings, error) {
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	work := doc.Copy()
	if err := Normalize(work); err != nil {
		return nil, err
	}
	def, _, err := work.Child(DefaultSection)
	if err != nil {
		return nil, &SectionError{Section: DefaultSection, Err: err}
	}

	s := &Settings{
		Clients:   ClientNames(work),
		defaults:  Builtins(),
		options:   map[string]interface{}{},
		overrides: map[string]interface{}{},
	}
	if s.DefaultClient, err = sectionString(def, DefaultSection, ClientKey, ""); err != nil {
		return nil, err
	}

	selected := strings.TrimSpace(opts.Client)
	if selected == "" {
		selected = s.DefaultClient
	}
	if s.Client, s.ExtraClients, err = selectClients(work, selected); err != nil {
		return nil, err
	}

	section, ok, err := work.Child(s.Client)
	if err != nil {
		return nil, &SectionError{Section: s.Client, Err: err}
	}
	if !ok {
		logger.Warn("missing section for client in config file, trying to connect", "client", s.Client)
		section = document.NewMapping()
		section.Set("host", s.Client)
	}

	if s.Enabled, err = sectionEnabled(section, s.Client); err != nil {
		return nil, err
	}
	if !s.Enabled {
		return nil, &DisabledClientError{Client: s.Client}
	}

	if err := layer(s.defaults, def, DefaultSection); err != nil {
		return nil, err
	}
	for k, v := range s.defaults {
		s.options[k] = v
	}
	if err := layer(s.options, section, s.Client); err != nil {
		return nil, err
	}

	if err := s.connection(section); err != nil {
		return nil, err
	}
	s.section = section.ToMap()

	logger.Debug("resolved settings", "client", s.Client, "extra_clients", s.ExtraClients, "type", s.Type)
	return s, nil
}

func selectClients(doc *document.Mapping, selected string) (string, []string, error) {
	switch {
	case selected == AllClients:
		var enabled []string
		for _, name := range ClientNames(doc) {
			section, _, err := doc.Child(name)
			if err != nil {
				return "", nil, &SectionError{Section: name, Err: err}
			}
			on, err := sectionEnabled(section, name)
			if err != nil {
				return "", nil, err
			}
			if on {
				enabled = append(enabled, name)
			}
		}
		if len(enabled) == 0 {
			return "", nil, ErrNoEnabledClients
		}
		return enabled[0], enabled[1:], nil

	case strings.Contains(selected, ","):
		var names []string
		for _, part := range strings.Split(selected, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
		if len(names) == 0 {
			return "", nil, ErrNoEnabledClients
		}
		return names[0], names[1:], nil
	}
	return selected, nil, nil
}

func sectionEnabled(section *document.Mapping, name string) (bool, error) {
	raw, ok := section.Get("enabled")
	if !ok || raw == nil {
		return true, nil
	}
	v, err := schema.Bool().Coerce(raw, []string{name, "enabled"})
	if err != nil {
		return false, &OptionError{Section: name, Key: "enabled", Kind: KindBool, Err: err}
	}
	return v.(bool), nil
}

// layer overlays the known options present in section onto values.
// Explicit nulls leave the lower layer in place.
func layer(values map[string]interface{}, section *document.Mapping, name string) error {
	for _, key := range section.Keys() {
		o, known := LookupOption(key)
		if !known {
			continue
		}
		raw, _ := section.Get(key)
		if raw == nil {
			continue
		}
		v, err := checkerFor(o.Kind).Coerce(document.Plain(raw), []string{name, key})
		if err != nil {
			return &OptionError{Section: name, Key: key, Kind: o.Kind, Err: err}
		}
		values[key] = v
	}
	return nil
}

func (s *Settings) connection(section *document.Mapping) error {
	var err error
	if s.Host, err = sectionString(section, s.Client, "host", DefaultHost); err != nil {
		return err
	}
	if s.User, err = sectionString(section, s.Client, "user", DefaultUser); err != nil {
		return err
	}
	if s.Protocol, err = sectionString(section, s.Client, "protocol", DefaultProtocol); err != nil {
		return err
	}
	if s.Type, err = sectionString(section, s.Client, "type", DefaultType); err != nil {
		return err
	}
	if s.URL, err = sectionString(section, s.Client, "url", ""); err != nil {
		return err
	}

	s.Port = DefaultPort
	if raw, _ := section.Get("port"); raw != nil {
		v, err := schema.ForceInt().Coerce(raw, []string{s.Client, "port"})
		if err != nil {
			return &OptionError{Section: s.Client, Key: "port", Kind: KindInt, Err: err}
		}
		s.Port = v.(int)
	}

	s.CPUFlags = []interface{}{}
	if raw, _ := section.Get("cpuflags"); raw != nil {
		v, err := schema.List(schema.Any()).Coerce(raw, []string{s.Client, "cpuflags"})
		if err != nil {
			return &OptionError{Section: s.Client, Key: "cpuflags", Kind: KindList, Err: err}
		}
		s.CPUFlags = v.([]interface{})
	}
	return nil
}

func sectionString(section *document.Mapping, name, key, fallback string) (string, error) {
	raw, _ := section.Get(key)
	if raw == nil {
		return fallback, nil
	}
	v, err := forceStringC{}.Coerce(raw, []string{name, key})
	if err != nil {
		return "", &OptionError{Section: name, Key: key, Kind: KindString, Err: err}
	}
	return v.(string), nil
}

// Default returns the value of an option in the two-layer defaults view
// (builtin then default section).
func (s *Settings) Default(name string) (interface{}, bool) {
	v, ok := s.defaults[name]
	return v, ok
}

// Defaults returns a copy of the two-layer defaults view.
func (s *Settings) Defaults() map[string]interface{} {
	return copyMap(s.defaults)
}

// Get returns the effective value of name: caller overrides, then the
// three-layer option cascade, then any other key of the client section.
func (s *Settings) Get(name string) (interface{}, bool) {
	if v, ok := s.overrides[name]; ok {
		return v, true
	}
	if v, ok := s.options[name]; ok {
		return v, true
	}
	v, ok := s.section[name]
	return v, ok
}

// Bool returns name as a bool; unset or mistyped values are false.
func (s *Settings) Bool(name string) bool {
	v, _ := s.Get(name)
	b, _ := v.(bool)
	return b
}

// Int returns name as an int; unset or mistyped values are 0.
func (s *Settings) Int(name string) int {
	v, _ := s.Get(name)
	i, _ := v.(int)
	return i
}

// String returns name as a string; nil values are "".
func (s *Settings) String(name string) string {
	v, _ := s.Get(name)
	if v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// List returns name as a list; unset or mistyped values are nil.
func (s *Settings) List(name string) []interface{} {
	v, _ := s.Get(name)
	l, _ := v.([]interface{})
	return l
}

// Options returns a copy of the three-layer option view, overrides included.
func (s *Settings) Options() map[string]interface{} {
	out := copyMap(s.options)
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// ClientSection returns a copy of the raw client section.
func (s *Settings) ClientSection() map[string]interface{} {
	return copyMap(s.section)
}

// WithOverrides returns a copy of s with overrides layered on top. Known
// options are coerced to their kind.
func (s *Settings) WithOverrides(overrides map[string]interface{}) (*Settings, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := *s
	out.overrides = copyMap(s.overrides)
	for _, k := range keys {
		v, err := Coerce(k, overrides[k])
		if err != nil {
			o, _ := LookupOption(k)
			return nil, &OptionError{Section: "overrides", Key: k, Kind: o.Kind, Err: err}
		}
		out.overrides[k] = v
	}
	return &out, nil
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
