package config

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// Client describes one client section.
type Client struct {
	Name    string
	Type    string
	Host    string
	Enabled bool
	Current bool
}

// ListClients describes the client sections of doc in document order.
func ListClients(doc *document.Mapping) ([]Client, error) {
	var current interface{}
	if def, ok, err := doc.Child(DefaultSection); err != nil {
		return nil, &SectionError{Section: DefaultSection, Err: err}
	} else if ok {
		current, _ = def.Get(ClientKey)
	}

	var clients []Client
	for _, name := range ClientNames(doc) {
		section, _, err := doc.Child(name)
		if err != nil {
			return nil, &SectionError{Section: name, Err: err}
		}
		c := Client{Name: name, Current: current == name}
		if c.Enabled, err = sectionEnabled(section, name); err != nil {
			return nil, err
		}
		if c.Type, err = sectionString(section, name, "type", DefaultType); err != nil {
			return nil, err
		}
		if c.Host, err = sectionString(section, name, "host", DefaultHost); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// SwitchClient makes name the active client of doc. The client must exist
// and be enabled; on failure doc is left untouched.
func SwitchClient(doc *document.Mapping, name string) error {
	section, err := clientSection(doc, name)
	if err != nil {
		return err
	}
	enabled, err := sectionEnabled(section, name)
	if err != nil {
		return err
	}
	if !enabled {
		return &DisabledClientError{Client: name}
	}

	if err := Normalize(doc); err != nil {
		return err
	}
	def, _, err := doc.Child(DefaultSection)
	if err != nil {
		return &SectionError{Section: DefaultSection, Err: err}
	}
	def.Set(ClientKey, name)
	return nil
}

// EnableClient sets enabled: true on the named client section.
func EnableClient(doc *document.Mapping, name string) error {
	section, err := clientSection(doc, name)
	if err != nil {
		return err
	}
	section.Set("enabled", true)
	return nil
}

// DisableClient sets enabled: false on the named client section. The
// active client cannot be disabled.
func DisableClient(doc *document.Mapping, name string) error {
	section, err := clientSection(doc, name)
	if err != nil {
		return err
	}

	if def, ok, err := doc.Child(DefaultSection); err != nil {
		return &SectionError{Section: DefaultSection, Err: err}
	} else if ok {
		if current, _ := def.Get(ClientKey); current == name {
			return fmt.Errorf("%w: %s", ErrCurrentDefault, name)
		}
	}

	section.Set("enabled", false)
	return nil
}

func clientSection(doc *document.Mapping, name string) (*document.Mapping, error) {
	if name == DefaultSection {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	section, ok, err := doc.Child(name)
	if err != nil {
		return nil, &SectionError{Section: name, Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	return section, nil
}

// WriteDefaults replaces the option keys of the default section with the
// two-layer defaults of s. Nil values and empty lists are skipped and keys
// are written sorted. The active client is always recorded so that a later
// Resolve selects the same client; keys of the default section that are not
// options are kept.
func WriteDefaults(doc *document.Mapping, s *Settings) error {
	if err := Normalize(doc); err != nil {
		return err
	}
	current, _, err := doc.Child(DefaultSection)
	if err != nil {
		return &SectionError{Section: DefaultSection, Err: err}
	}

	client := s.DefaultClient
	if clients := ClientNames(doc); len(clients) == 1 {
		client = clients[0]
	}

	values := map[string]interface{}{}
	for _, key := range current.Keys() {
		if _, known := LookupOption(key); !known {
			values[key], _ = current.Get(key)
		}
	}
	for key, v := range s.defaults {
		if v == nil {
			continue
		}
		if l, ok := v.([]interface{}); ok && len(l) == 0 {
			continue
		}
		values[key] = v
	}
	values[ClientKey] = client

	def := document.FromMap(values)
	doc.Set(DefaultSection, def)
	return nil
}

// Keywords returns the two-layer defaults view keyed by option name.
func Keywords(s *Settings) map[string]interface{} {
	return s.Defaults()
}
