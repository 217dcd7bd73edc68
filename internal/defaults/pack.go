// Package defaults loads resource packs: named sets of per-body resource
// definitions that a save is generated from.
package defaults

import (
	"image/color"
	"sort"

	"github.com/kres-mod/kres/internal/resource"
)

// Pack is a named collection of resource definitions.
type Pack struct {
	Name        string
	Description string
	Bodies      []Body
	Info        map[string]ResourceInfo
}

// Body groups the definitions authored for one celestial body.
type Body struct {
	Name      string
	Resources []resource.Definition
}

// ResourceInfo carries display data shared by every body.
type ResourceInfo struct {
	Name     string
	RealName string
	Colour   color.NRGBA
}

// defaultColour is used for resources without an info entry.
var defaultColour = color.NRGBA{R: 255, G: 255, B: 255, A: 0}

// Body looks up the definitions of one body.
func (p *Pack) Body(name string) (Body, bool) {
	for _, b := range p.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return Body{}, false
}

// BodyNames lists the bodies in the pack, sorted.
func (p *Pack) BodyNames() []string {
	out := make([]string, 0, len(p.Bodies))
	for _, b := range p.Bodies {
		out = append(out, b.Name)
	}
	sort.Strings(out)
	return out
}

// Definition finds a resource on a body by name and type.
func (p *Pack) Definition(body, name string, t resource.Type) (resource.Definition, bool) {
	b, ok := p.Body(body)
	if !ok {
		return resource.Definition{}, false
	}
	for _, d := range b.Resources {
		if d.Name == name && d.Type == t {
			return d, true
		}
	}
	return resource.Definition{}, false
}

// Colour returns the display colour of a resource, white when unset.
func (p *Pack) Colour(name string) color.NRGBA {
	if info, ok := p.Info[name]; ok {
		return info.Colour
	}
	return defaultColour
}

// ResourceNames lists the distinct resource names of the given type, sorted.
func (p *Pack) ResourceNames(t resource.Type) []string {
	seen := make(map[string]struct{})
	for _, b := range p.Bodies {
		for _, d := range b.Resources {
			if d.Type == t {
				seen[d.Name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
