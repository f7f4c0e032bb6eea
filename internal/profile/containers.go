package profile

import (
	"fmt"
	"sort"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// ContainerSummary is one row of the container profile listing.
type ContainerSummary struct {
	Name    string
	Image   string
	Nets    interface{}
	Ports   interface{}
	Volumes interface{}
	Cmd     interface{}
}

// ListContainers returns the container profiles sorted by name. Volumes
// fall back to the disks attribute.
func ListContainers(profiles *document.Mapping) ([]ContainerSummary, error) {
	var out []ContainerSummary
	for _, name := range profiles.Keys() {
		attrs, err := attributes(profiles, name)
		if err != nil {
			return nil, err
		}
		if !isContainer(attrs) {
			continue
		}

		c := ContainerSummary{
			Name:    name,
			Nets:    attrs["nets"],
			Ports:   attrs["ports"],
			Volumes: attrs["volumes"],
			Cmd:     attrs["cmd"],
		}
		if c.Volumes == nil {
			c.Volumes = attrs["disks"]
		}
		if image := attrs["image"]; image != nil {
			c.Image = fmt.Sprint(image)
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Flavor is one row of the flavor listing.
type Flavor struct {
	Name    string
	NumCPUs int
	Memory  int
	Disk    interface{}
}

// ListFlavors returns the flavors that declare both numcpus and memory,
// sorted by name.
func ListFlavors(flavors *document.Mapping) ([]Flavor, error) {
	var out []Flavor
	for _, name := range flavors.Keys() {
		child, _, err := flavors.Child(name)
		if err != nil {
			return nil, &AttributeError{Profile: name, Err: err}
		}
		attrs := child.ToMap()
		if attrs["numcpus"] == nil || attrs["memory"] == nil {
			continue
		}

		f := Flavor{Name: name, Disk: attrs["disk"]}
		for key, dst := range map[string]*int{"numcpus": &f.NumCPUs, "memory": &f.Memory} {
			v, err := config.Coerce(key, attrs[key])
			if err != nil {
				return nil, &AttributeError{Profile: name, Attribute: key, Err: err}
			}
			*dst = v.(int)
		}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
