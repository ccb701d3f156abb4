package testcase

import (
	"maps"
	"sort"
	"strings"
)

// Specification identifies the JSON Schema dialect used to interpret a
// schema resource, in particular how it declares ids and anchors.
type Specification struct {
	Name    string
	Dialect string
}

// Opaque is used for resources whose dialect is unknown. Nothing inside an
// opaque resource is treated as an id or anchor.
var Opaque = Specification{Name: "opaque"}

var specifications = map[string]Specification{}

func init() {
	for _, s := range []Specification{
		{Name: "draft2020-12", Dialect: "https://json-schema.org/draft/2020-12/schema"},
		{Name: "draft2019-09", Dialect: "https://json-schema.org/draft/2019-09/schema"},
		{Name: "draft7", Dialect: "http://json-schema.org/draft-07/schema"},
		{Name: "draft6", Dialect: "http://json-schema.org/draft-06/schema"},
		{Name: "draft4", Dialect: "http://json-schema.org/draft-04/schema"},
		{Name: "draft3", Dialect: "http://json-schema.org/draft-03/schema"},
	} {
		specifications[s.Dialect] = s
	}
}

// SpecificationWith returns the specification for a dialect URI, or
// fallback when the dialect is not recognized. A trailing empty fragment
// is ignored.
func SpecificationWith(dialect string, fallback Specification) Specification {
	if s, ok := specifications[strings.TrimSuffix(dialect, "#")]; ok {
		return s
	}
	return fallback
}

// Resource is a schema document held by a Registry.
type Resource struct {
	Contents      any
	Specification Specification
}

// Registry maps URIs to schemas referenced from a case's schema. Resources
// without their own "$schema" are interpreted with the registry's default
// specification, derived from the case's dialect.
type Registry struct {
	contents    map[string]any
	defaultSpec Specification
}

// NewRegistry builds a registry for a case written against dialect.
func NewRegistry(dialect string, contents map[string]any) Registry {
	return Registry{
		contents:    maps.Clone(contents),
		defaultSpec: SpecificationWith(dialect, Opaque),
	}
}

// Len returns the number of resources.
func (r Registry) Len() int { return len(r.contents) }

// DefaultSpecification is used for resources that do not declare a dialect.
func (r Registry) DefaultSpecification() Specification {
	if r.defaultSpec.Name == "" {
		return Opaque
	}
	return r.defaultSpec
}

// URIs returns the registered URIs in sorted order.
func (r Registry) URIs() []string {
	uris := make([]string, 0, len(r.contents))
	for uri := range r.contents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Contents returns a copy of the URI to schema mapping.
func (r Registry) Contents() map[string]any {
	return maps.Clone(r.contents)
}

// Lookup returns the resource registered at uri.
func (r Registry) Lookup(uri string) (Resource, bool) {
	contents, ok := r.contents[uri]
	if !ok {
		return Resource{}, false
	}
	spec := r.DefaultSpecification()
	if doc, ok := contents.(map[string]any); ok {
		if dialect, ok := doc["$schema"].(string); ok {
			spec = SpecificationWith(dialect, spec)
		}
	}
	return Resource{Contents: contents, Specification: spec}, true
}
