// Package config loads the route table file of the client and the settings
// of the development server.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	ui "github.com/atdiar/rtforum"
)

// DefaultRoutes is the route table of the forum.
//
//go:embed routes.toml
var DefaultRoutes string

// RouteEntry is a [[route]] table of a route file.
type RouteEntry struct {
	Pattern string `toml:"pattern"`
	View    string `toml:"view"`
	Access  string `toml:"access"`
	Name    string `toml:"name"`
}

type routeFile struct {
	Route []RouteEntry `toml:"route"`
}

// ParseRoutes decodes a route file.
func ParseRoutes(r io.Reader) ([]RouteEntry, error) {
	var f routeFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decoding route file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in route file: %v", undecoded)
	}
	return f.Route, nil
}

// LoadRoutes decodes a route file and binds each entry to the view
// constructor registered under its view name.
func LoadRoutes(r io.Reader, views map[string]ui.ViewConstructor) (*ui.RouteTable, error) {
	entries, err := ParseRoutes(r)
	if err != nil {
		return nil, err
	}
	table, _ := ui.NewRouteTable()
	for i, e := range entries {
		ctor, ok := views[e.View]
		if !ok {
			return nil, fmt.Errorf("route %d (%s): unknown view %q", i+1, e.Pattern, e.View)
		}
		access, err := ui.ParseAccess(e.Access)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i+1, e.Pattern, err)
		}
		name := e.Name
		if name == "" {
			name = e.View
		}
		if err := table.Add(ui.Route{Pattern: e.Pattern, View: ctor, Access: access, Name: name}); err != nil {
			return nil, fmt.Errorf("route %d: %w", i+1, err)
		}
	}
	return table, nil
}

// LoadDefaultRoutes is LoadRoutes applied to DefaultRoutes.
func LoadDefaultRoutes(views map[string]ui.ViewConstructor) (*ui.RouteTable, error) {
	return LoadRoutes(strings.NewReader(DefaultRoutes), views)
}

// WriteRoutes encodes a route table as a route file.
func WriteRoutes(w io.Writer, routes []ui.Route, viewName func(ui.Route) string) error {
	f := routeFile{Route: make([]RouteEntry, len(routes))}
	for i, r := range routes {
		f.Route[i] = RouteEntry{Pattern: r.Pattern, View: viewName(r), Access: r.Access.String(), Name: r.Name}
	}
	return toml.NewEncoder(w).Encode(f)
}
