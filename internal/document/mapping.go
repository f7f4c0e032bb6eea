// Package document provides an ordered YAML mapping used for every on-disk
// document kvirt reads and writes back: the config, secrets, profile and flavor
// stores, and plan parameter blocks.
//
// Key order is preserved from the source document. Values that are never
// modified are written back from their original YAML nodes, so a rewrite only
// touches the entries that actually changed.
package document

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

type entry struct {
	key   string
	value interface{}
	node  *yaml.Node // original value node, nil once the value changes
}

// Mapping is an insertion-ordered string-keyed mapping.
type Mapping struct {
	entries []entry
	index   map[string]int
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: map[string]int{}}
}

// FromMap builds a mapping from a plain map. Keys are sorted.
func FromMap(values map[string]interface{}) *Mapping {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := NewMapping()
	for _, k := range keys {
		m.Set(k, values[k])
	}
	return m
}

// NotAMappingError is returned when a YAML node that must be a mapping is not.
type NotAMappingError struct {
	Key  string
	Line int
	Kind string
}

func (e *NotAMappingError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("line %d: %q is a %s, expected a mapping", e.Line, e.Key, e.Kind)
	}
	return fmt.Sprintf("line %d: document is a %s, expected a mapping", e.Line, e.Kind)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Has reports whether key is present, even with a null value.
func (m *Mapping) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[key]
	return ok
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

// Set stores value under key. Existing keys keep their position; new keys
// are appended.
func (m *Mapping) Set(key string, value interface{}) {
	m.set(key, value, nil)
}

func (m *Mapping) set(key string, value interface{}, node *yaml.Node) {
	if m.index == nil {
		m.index = map[string]int{}
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].value = value
		m.entries[i].node = node
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry{key: key, value: value, node: node})
}

// Prepend stores value under key as the first entry.
func (m *Mapping) Prepend(key string, value interface{}) {
	m.Delete(key)
	m.entries = append([]entry{{key: key, value: value}}, m.entries...)
	m.reindex()
}

// Delete removes key and reports whether it was present.
func (m *Mapping) Delete(key string) bool {
	if m == nil {
		return false
	}
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	m.reindex()
	return true
}

func (m *Mapping) reindex() {
	m.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		m.index[e.key] = i
	}
}

// Child returns the nested mapping stored under key. A null value is treated
// as an empty mapping. The nested mapping is cached in place so that changes
// made through it are written back with the parent.
func (m *Mapping) Child(key string) (*Mapping, bool, error) {
	if m == nil {
		return nil, false, nil
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false, nil
	}

	e := &m.entries[i]
	switch v := e.value.(type) {
	case *Mapping:
		return v, true, nil
	case nil:
		child := NewMapping()
		e.value, e.node = child, nil
		return child, true, nil
	}

	if e.node != nil && e.node.Kind == yaml.MappingNode {
		child := NewMapping()
		if err := child.UnmarshalYAML(e.node); err != nil {
			return nil, true, err
		}
		e.value, e.node = child, nil
		return child, true, nil
	}

	if plain, isMap := e.value.(map[string]interface{}); isMap {
		child := FromMap(plain)
		e.value, e.node = child, nil
		return child, true, nil
	}

	line := 0
	if e.node != nil {
		line = e.node.Line
	}
	return nil, true, &NotAMappingError{Key: key, Line: line, Kind: fmt.Sprintf("%T", e.value)}
}

// Copy returns a shallow copy of m. Nested mappings are shared.
func (m *Mapping) Copy() *Mapping {
	out := NewMapping()
	if m == nil {
		return out
	}
	for _, e := range m.entries {
		out.set(e.key, e.value, e.node)
	}
	return out
}

// ToMap converts m into a plain map, recursively unwrapping nested mappings.
func (m *Mapping) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, m.Len())
	if m == nil {
		return out
	}
	for _, e := range m.entries {
		out[e.key] = Plain(e.value)
	}
	return out
}

// Plain unwraps any *Mapping found in v into plain maps.
func Plain(v interface{}) interface{} {
	switch t := v.(type) {
	case *Mapping:
		return t.ToMap()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return &NotAMappingError{Line: node.Line, Kind: kindName(node)}
	}

	m.entries = nil
	m.index = map[string]int{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return fmt.Errorf("line %d: decode key: %w", keyNode.Line, err)
		}

		var value interface{}
		if err := valueNode.Decode(&value); err != nil {
			return fmt.Errorf("line %d: decode %q: %w", valueNode.Line, key, err)
		}
		m.set(key, value, valueNode)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m *Mapping) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m == nil {
		return out, nil
	}
	for _, e := range m.entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key}
		value := e.node
		if value == nil {
			value = &yaml.Node{}
			if err := value.Encode(e.value); err != nil {
				return nil, fmt.Errorf("encode %q: %w", e.key, err)
			}
		}
		out.Content = append(out.Content, key, value)
	}
	return out, nil
}

// Decode parses a YAML document into a mapping. Empty and null documents
// yield an empty mapping.
func Decode(data []byte) (*Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	m := NewMapping()
	if root.Kind == 0 || len(root.Content) == 0 {
		return m, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return m, nil
	}
	if err := m.UnmarshalYAML(doc); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode serializes m as a block-style YAML document.
func Encode(m *Mapping) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return "null"
		}
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
