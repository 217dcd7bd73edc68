// Package catalogue derives the runtime resource items of every body from the
// selected pack, the generated rasters and the persisted hidden values.
package catalogue

import (
	"sort"

	"github.com/kres-mod/kres/internal/resource"
)

// Catalogue is the read-only result of a completed load.
type Catalogue struct {
	bodies map[string][]resource.Item
}

func newCatalogue() *Catalogue {
	return &Catalogue{bodies: make(map[string][]resource.Item)}
}

func (c *Catalogue) add(body string, item resource.Item) {
	c.bodies[body] = append(c.bodies[body], item)
}

// Items returns the items of one type on a body, in pack order.
func (c *Catalogue) Items(body string, t resource.Type) []resource.Item {
	var out []resource.Item
	for _, it := range c.bodies[body] {
		if it.Type == t {
			out = append(out, it)
		}
	}
	return out
}

// Item finds one item.
func (c *Catalogue) Item(body, name string, t resource.Type) (resource.Item, bool) {
	for _, it := range c.bodies[body] {
		if it.Name == name && it.Type == t {
			return it, true
		}
	}
	return resource.Item{}, false
}

// Bodies lists the bodies with at least one item, sorted.
func (c *Catalogue) Bodies() []string {
	out := make([]string, 0, len(c.bodies))
	for b := range c.bodies {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Len counts every item.
func (c *Catalogue) Len() int {
	n := 0
	for _, items := range c.bodies {
		n += len(items)
	}
	return n
}
