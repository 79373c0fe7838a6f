// Package routes registers grouped handlers on a ServeMux and documents
// them in an OpenAPI spec.
package routes

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/JaimeStill/tally/pkg/openapi"
)

// Group is a set of routes sharing a path prefix. Tags are applied to
// every documented operation in the group and its children.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux as "METHOD prefix+pattern".
func Register(mux *http.ServeMux, groups ...Group) {
	walk(groups, "", nil, func(path string, _ []string, r Route) error {
		mux.HandleFunc(r.Method+" "+path, r.Handler)
		return nil
	})
}

// Document adds every route that carries an OpenAPI operation to spec.
// Group tags are appended to the operation's own.
func Document(spec *openapi.Spec, groups ...Group) error {
	return walk(groups, "", nil, func(path string, tags []string, r Route) error {
		if r.OpenAPI == nil {
			return nil
		}
		op := *r.OpenAPI
		for _, t := range tags {
			if !slices.Contains(op.Tags, t) {
				op.Tags = append(slices.Clip(op.Tags), t)
			}
		}
		if path == "" {
			path = "/"
		}
		if err := spec.AddOperation(r.Method, path, &op); err != nil {
			return fmt.Errorf("document %s %s: %w", r.Method, path, err)
		}
		return nil
	})
}

func walk(groups []Group, prefix string, tags []string, fn func(path string, tags []string, r Route) error) error {
	for _, g := range groups {
		full := prefix + g.Prefix
		groupTags := append(slices.Clip(tags), g.Tags...)

		for _, r := range g.Routes {
			if err := fn(full+r.Pattern, groupTags, r); err != nil {
				return err
			}
		}
		if err := walk(g.Children, full, groupTags, fn); err != nil {
			return err
		}
	}
	return nil
}
