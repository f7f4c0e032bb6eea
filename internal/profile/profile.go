// Package profile lists and edits VM profiles, container profiles and
// flavors.
//
// A profile may name another profile in its "base" attribute. Missing
// attributes are taken from the base and then from the defaults layer of the
// effective settings. Only one level is followed: the base's own "base" is
// ignored.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

const (
	// BaseKey names the base profile of a profile.
	BaseKey = "base"

	// ContainerType marks container profiles.
	ContainerType = "container"
)

var (
	// ErrProfileNotFound is returned when a named profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoAttributes is returned when creating or updating a profile
	// without any attribute.
	ErrNoAttributes = errors.New("at least one attribute is required")
)

// MissingBaseError reports a profile whose base does not exist.
type MissingBaseError struct {
	Profile string
	Base    string
}

func (e *MissingBaseError) Error() string {
	return fmt.Sprintf("profile %s: base profile %s not found", e.Profile, e.Base)
}

// AttributeError reports a profile attribute with an unusable value.
type AttributeError struct {
	Profile   string
	Attribute string
	Err       error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("profile %s: attribute %s: %v", e.Profile, e.Attribute, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

// Summary is one row of the profile listing.
type Summary struct {
	Name        string
	Flavor      string
	Pool        string
	Disks       string
	Image       string
	Nets        string
	CloudInit   bool
	Nested      bool
	ReserveDNS  bool
	ReserveHost bool
}

// Defaults is the fallback layer consulted when neither a profile nor its
// base sets an attribute. *config.Settings implements it.
type Defaults interface {
	Default(name string) (interface{}, bool)
}

// List resolves every non-container profile. Profiles without a base are
// visited before profiles with one; the result is sorted by name.
func List(profiles *document.Mapping, defaults Defaults) ([]Summary, error) {
	var plain, based []string
	for _, name := range profiles.Keys() {
		attrs, err := attributes(profiles, name)
		if err != nil {
			return nil, err
		}
		if _, ok := attrs[BaseKey]; ok {
			based = append(based, name)
		} else {
			plain = append(plain, name)
		}
	}

	var out []Summary
	for _, name := range append(plain, based...) {
		attrs, _ := attributes(profiles, name)
		if isContainer(attrs) {
			continue
		}

		r := resolver{name: name, attrs: attrs, defaults: defaults}
		if base, ok := attrs[BaseKey]; ok {
			baseName := fmt.Sprint(base)
			if !profiles.Has(baseName) {
				return nil, &MissingBaseError{Profile: name, Base: baseName}
			}
			r.base, _ = attributes(profiles, baseName)
		}

		summary, err := r.summary()
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type resolver struct {
	name     string
	attrs    map[string]interface{}
	base     map[string]interface{}
	defaults Defaults
}

// lookup returns the profile value, then the base value, then the default.
func (r resolver) lookup(key string) interface{} {
	if v, ok := r.attrs[key]; ok {
		return v
	}
	if v, ok := r.base[key]; ok {
		return v
	}
	v, _ := r.defaults.Default(key)
	return v
}

func (r resolver) typed(key string) (interface{}, error) {
	v, err := config.Coerce(key, r.lookup(key))
	if err != nil {
		return nil, &AttributeError{Profile: r.name, Attribute: key, Err: err}
	}
	return v, nil
}

func (r resolver) boolean(key string) (bool, error) {
	v, err := r.typed(key)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (r resolver) summary() (Summary, error) {
	s := Summary{Name: r.name}

	numcpus, err := r.typed("numcpus")
	if err != nil {
		return s, err
	}
	memory, err := r.typed("memory")
	if err != nil {
		return s, err
	}
	if flavor := r.lookup("flavor"); flavor != nil {
		s.Flavor = fmt.Sprint(flavor)
	} else {
		s.Flavor = fmt.Sprintf("%vcpus %vMb ram", numcpus, memory)
	}

	if pool := r.lookup("pool"); pool != nil {
		s.Pool = fmt.Sprint(pool)
	}

	if s.Disks, err = r.disks(); err != nil {
		return s, err
	}
	if s.Nets, err = r.nets(); err != nil {
		return s, err
	}
	s.Image = r.image()

	if s.CloudInit, err = r.boolean("cloudinit"); err != nil {
		return s, err
	}
	if s.Nested, err = r.boolean("nested"); err != nil {
		return s, err
	}
	if s.ReserveDNS, err = r.boolean("reservedns"); err != nil {
		return s, err
	}
	if s.ReserveHost, err = r.boolean("reservehost"); err != nil {
		return s, err
	}
	return s, nil
}

// image honors the legacy "template" attribute as an alias of "image".
func (r resolver) image() string {
	for _, layer := range []map[string]interface{}{r.attrs, r.base} {
		if v, ok := layer["image"]; ok && v != nil {
			return fmt.Sprint(v)
		}
		if v, ok := layer["template"]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	if v, _ := r.defaults.Default("image"); v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (r resolver) disks() (string, error) {
	defaultSize := "10"
	if v, _ := r.defaults.Default("disksize"); v != nil {
		defaultSize = fmt.Sprint(v)
	}

	raw := r.lookup("disks")
	if raw == nil {
		return "", nil
	}
	disks, ok := raw.([]interface{})
	if !ok {
		return "", &AttributeError{Profile: r.name, Attribute: "disks", Err: fmt.Errorf("expected a list, got %T", raw)}
	}

	sizes := make([]string, 0, len(disks))
	for i, disk := range disks {
		switch d := disk.(type) {
		case nil:
			sizes = append(sizes, defaultSize)
		case int:
			sizes = append(sizes, strconv.Itoa(d))
		case float64:
			sizes = append(sizes, strconv.FormatFloat(d, 'f', -1, 64))
		case map[string]interface{}:
			if size, ok := d["size"]; ok && size != nil {
				sizes = append(sizes, fmt.Sprint(size))
			} else {
				sizes = append(sizes, defaultSize)
			}
		default:
			return "", &AttributeError{
				Profile:   r.name,
				Attribute: "disks",
				Err:       fmt.Errorf("disk %d: unsupported %T", i, disk),
			}
		}
	}
	return strings.Join(sizes, ","), nil
}

func (r resolver) nets() (string, error) {
	raw := r.lookup("nets")
	if raw == nil {
		return "", nil
	}
	nets, ok := raw.([]interface{})
	if !ok {
		return "", &AttributeError{Profile: r.name, Attribute: "nets", Err: fmt.Errorf("expected a list, got %T", raw)}
	}

	names := make([]string, 0, len(nets))
	for i, net := range nets {
		switch n := net.(type) {
		case string:
			names = append(names, n)
		case map[string]interface{}:
			name, ok := n["name"]
			if !ok {
				return "", &AttributeError{Profile: r.name, Attribute: "nets", Err: fmt.Errorf("net %d: missing name", i)}
			}
			names = append(names, fmt.Sprint(name))
		default:
			return "", &AttributeError{Profile: r.name, Attribute: "nets", Err: fmt.Errorf("net %d: unsupported %T", i, net)}
		}
	}
	return strings.Join(names, ","), nil
}

func isContainer(attrs map[string]interface{}) bool {
	t, _ := attrs["type"].(string)
	return t == ContainerType
}

// attributes returns the named profile as a plain map. A null profile is
// empty.
func attributes(profiles *document.Mapping, name string) (map[string]interface{}, error) {
	child, ok, err := profiles.Child(name)
	if err != nil {
		return nil, &AttributeError{Profile: name, Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return child.ToMap(), nil
}
