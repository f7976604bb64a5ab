// Package registry holds the catalog of fetchable resource types: which
// provider operation lists each type, how its pages are keyed, and which
// other types it depends on.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadDefinition marks a resource definition that cannot be used.
var ErrBadDefinition = errors.New("invalid resource definition")

// Ref identifies a resource type as "service.resource".
type Ref struct {
	Service  string
	Resource string
}

// ParseRef splits a "service.resource" string.
func ParseRef(s string) (Ref, error) {
	i := strings.IndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("%w: ref %q must be service.resource", ErrBadDefinition, s)
	}
	return Ref{Service: s[:i], Resource: s[i+1:]}, nil
}

func (r Ref) String() string {
	return r.Service + "." + r.Resource
}

// Definition describes how one resource type is fetched and surveyed.
type Definition struct {
	// Service and Resource name the type, e.g. kms / keys.
	Service  string `yaml:"service"`
	Resource string `yaml:"resource"`

	// Global marks a type whose API is not regional. Global types are
	// fetched once per account, in the account's first region.
	Global bool `yaml:"global,omitempty"`

	// Operation is the provider call that lists the type.
	Operation string `yaml:"operation"`

	// ResourceKey is the response field carrying the per-page list of
	// raw records.
	ResourceKey string `yaml:"resource_key"`

	// IDAttribute is the record field used as the resource id.
	IDAttribute string `yaml:"id_attribute"`

	// PageMarker overrides continuation token detection for providers
	// with non-standard pagination fields.
	PageMarker string `yaml:"page_marker,omitempty"`

	// RequestMarker names the request parameter the marker is sent
	// back under, for APIs whose response and request fields differ
	// (NextMarker out, Marker in). Defaults to PageMarker.
	RequestMarker string `yaml:"request_marker,omitempty"`

	// Params are extra operation parameters sent with every page.
	Params map[string]any `yaml:"params,omitempty"`

	// Requires lists resource types that must be surveyed before this
	// one, for fetchers that read identifiers out of prior results.
	Requires []Ref `yaml:"requires,omitempty"`

	// Checks names the evaluation checks to run on surveyed instances.
	Checks []string `yaml:"checks,omitempty"`

	// Schema restricts which record fields are kept. Empty keeps all.
	Schema Schema `yaml:"schema,omitempty"`
}

// Ref returns the definition's type ref.
func (d Definition) Ref() Ref {
	return Ref{Service: d.Service, Resource: d.Resource}
}

// Validate reports whether the definition is complete enough to fetch.
func (d Definition) Validate() error {
	switch {
	case d.Service == "":
		return fmt.Errorf("%w: missing service", ErrBadDefinition)
	case d.Resource == "":
		return fmt.Errorf("%w: %s: missing resource", ErrBadDefinition, d.Service)
	case d.Operation == "":
		return fmt.Errorf("%w: %s: missing operation", ErrBadDefinition, d.Ref())
	case d.ResourceKey == "":
		return fmt.Errorf("%w: %s: missing resource_key", ErrBadDefinition, d.Ref())
	case d.IDAttribute == "":
		return fmt.Errorf("%w: %s: missing id_attribute", ErrBadDefinition, d.Ref())
	}
	for _, req := range d.Requires {
		if req.Service == "" || req.Resource == "" {
			return fmt.Errorf("%w: %s: bad requires entry %q", ErrBadDefinition, d.Ref(), req)
		}
	}
	return nil
}

// Catalog is a set of resource definitions keyed by ref.
type Catalog struct {
	defs map[Ref]Definition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[Ref]Definition)}
}

// Add validates and registers a definition. Re-adding a ref replaces the
// earlier definition, which is how user catalogs override builtins.
func (c *Catalog) Add(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	c.defs[d.Ref()] = d
	return nil
}

// Get looks a definition up by ref.
func (c *Catalog) Get(ref Ref) (Definition, bool) {
	d, ok := c.defs[ref]
	return d, ok
}

// All returns every definition ordered by ref.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ref().String() < out[j].Ref().String()
	})
	return out
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Closure expands refs to the fixed point of their requires edges.
// Cycles terminate because each ref is visited once. The result is
// sorted and includes the inputs.
func (c *Catalog) Closure(refs []Ref) []Ref {
	seen := make(map[Ref]bool)
	queue := append([]Ref(nil), refs...)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if def, ok := c.defs[ref]; ok {
			queue = append(queue, def.Requires...)
		}
	}
	out := make([]Ref, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Merge overlays other onto c, replacing refs both define.
func (c *Catalog) Merge(other *Catalog) {
	for ref, d := range other.defs {
		c.defs[ref] = d
	}
}

// UnmarshalYAML accepts "service.resource" ref strings.
func (r *Ref) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	ref, err := ParseRef(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// MarshalYAML renders the ref back to "service.resource".
func (r Ref) MarshalYAML() (any, error) {
	return r.String(), nil
}
