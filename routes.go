package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// Access is the authorization requirement of a route.
type Access int

const (
	AccessAny Access = iota
	AccessAnonymous
	AccessAuthenticated
)

func (a Access) String() string {
	switch a {
	case AccessAny:
		return "any"
	case AccessAnonymous:
		return "anonymous"
	case AccessAuthenticated:
		return "authenticated"
	default:
		return "Access(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseAccess is the inverse of Access.String. The empty string is AccessAny.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return AccessAny, nil
	case "anonymous", "anonymous-only", "guest":
		return AccessAnonymous, nil
	case "authenticated", "authenticated-only", "user":
		return AccessAuthenticated, nil
	}
	return AccessAny, fmt.Errorf("unknown access requirement %q", s)
}

// Route is an entry of the route table.
//
// Pattern segments are either static, a named parameter (":id") or an
// anonymous parameter ("*") whose value is stored under "param<i>", i being
// the index of the segment.
type Route struct {
	Pattern string
	View    ViewConstructor
	Access  Access
	Name    string
}

// Match is the result of a route resolution.
type Match struct {
	Route  Route
	Params Params
	// Path is the normalized path that was matched.
	Path string
}

type segment struct {
	value string
	param string
}

func (s segment) static() bool { return s.param == "" }

type compiledRoute struct {
	Route
	index        int
	segments     []segment
	staticPrefix int
	statics      int
}

// RouteTable is the ordered list of routes. Specificity, not order,
// resolves ambiguity: an exact static match wins, then the longest static
// prefix, then the highest number of static segments. Insertion order only
// breaks the remaining ties.
type RouteTable struct {
	routes []*compiledRoute
	exact  map[string]*compiledRoute
}

func NewRouteTable(routes ...Route) (*RouteTable, error) {
	t := &RouteTable{exact: make(map[string]*compiledRoute)}
	for _, r := range routes {
		if err := t.Add(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustRouteTable is like NewRouteTable but panics on error. It is meant for
// route tables written in code.
func MustRouteTable(routes ...Route) *RouteTable {
	t, err := NewRouteTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RouteTable) Add(r Route) error {
	if r.View == nil {
		return fmt.Errorf("route %q has no view", r.Pattern)
	}
	segs, err := compilePattern(r.Pattern)
	if err != nil {
		return err
	}
	cr := &compiledRoute{Route: r, index: len(t.routes), segments: segs}
	prefix := true
	for _, s := range segs {
		if s.static() {
			cr.statics++
			if prefix {
				cr.staticPrefix++
			}
			continue
		}
		prefix = false
	}
	for _, existing := range t.routes {
		if samePattern(existing.segments, segs) {
			return fmt.Errorf("route %q conflicts with %q", r.Pattern, existing.Pattern)
		}
	}
	if cr.statics == len(segs) {
		t.exact[joinSegments(segs)] = cr
	}
	t.routes = append(t.routes, cr)
	return nil
}

// Routes returns the routes in insertion order.
func (t *RouteTable) Routes() []Route {
	l := make([]Route, len(t.routes))
	for i, r := range t.routes {
		l[i] = r.Route
	}
	return l
}

// Match resolves a normalized path. It returns ErrRouteNotFound when no
// pattern matches.
func (t *RouteTable) Match(path string) (Match, error) {
	if r, ok := t.exact[path]; ok {
		return Match{Route: r.Route, Params: Params{}, Path: path}, nil
	}
	parts := splitPath(path)

	var best *compiledRoute
	var bestParams Params
	for _, r := range t.routes {
		if len(r.segments) != len(parts) {
			continue
		}
		params, ok := r.match(parts)
		if !ok {
			continue
		}
		if best == nil || r.moreSpecific(best) {
			best, bestParams = r, params
		}
	}
	if best == nil {
		return Match{Path: path}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	return Match{Route: best.Route, Params: bestParams, Path: path}, nil
}

func (r *compiledRoute) match(parts []string) (Params, bool) {
	params := Params{}
	for i, s := range r.segments {
		if s.static() {
			if parts[i] != s.value {
				return nil, false
			}
			continue
		}
		if !isParamValue(parts[i]) {
			return nil, false
		}
		params[s.param] = parts[i]
	}
	return params, true
}

func (r *compiledRoute) moreSpecific(o *compiledRoute) bool {
	if r.staticPrefix != o.staticPrefix {
		return r.staticPrefix > o.staticPrefix
	}
	if r.statics != o.statics {
		return r.statics > o.statics
	}
	return r.index < o.index
}

// Link builds the path of a route pattern with the given parameters.
func Link(pattern string, params Params) (string, error) {
	segs, err := compilePattern(pattern)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.static() {
			parts[i] = s.value
			continue
		}
		v, ok := params[s.param]
		if !ok || !isParamValue(v) {
			return "", fmt.Errorf("missing or invalid value for parameter %q of %q", s.param, pattern)
		}
		parts[i] = v
	}
	return "/" + strings.Join(parts, "/"), nil
}

func compilePattern(pattern string) ([]segment, error) {
	if err := validatePath(pattern); err != nil {
		return nil, err
	}
	if strings.ContainsAny(pattern, "?#") {
		return nil, fmt.Errorf("%w: pattern %q has a query or fragment", ErrMalformedPath, pattern)
	}
	parts := splitPath(strings.TrimSuffix(pattern, "/"))
	segs := make([]segment, len(parts))
	names := make(map[string]bool)
	for i, p := range parts {
		switch {
		case p == "*":
			segs[i] = segment{param: "param" + strconv.Itoa(i+1)}
		case strings.HasPrefix(p, ":"):
			name := strings.TrimPrefix(p, ":")
			if name == "" {
				return nil, fmt.Errorf("%w: empty parameter name in %q", ErrMalformedPath, pattern)
			}
			segs[i] = segment{param: name}
		default:
			segs[i] = segment{value: p}
		}
		if n := segs[i].param; n != "" {
			if names[n] {
				return nil, fmt.Errorf("%w: duplicate parameter %q in %q", ErrMalformedPath, n, pattern)
			}
			names[n] = true
		}
	}
	return segs, nil
}

func samePattern(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].static() != b[i].static() {
			return false
		}
		if a[i].static() && a[i].value != b[i].value {
			return false
		}
	}
	return true
}

func joinSegments(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(s.value)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// isParamValue accepts the characters the API server accepts in its own
// path parameters.
func isParamValue(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}

// validatePath checks that path is an absolute, well-formed in-app path.
func validatePath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("%w: empty path", ErrMalformedPath)
	case !strings.HasPrefix(path, "/"):
		return fmt.Errorf("%w: %q is not absolute", ErrMalformedPath, path)
	case strings.HasPrefix(path, "//"):
		return fmt.Errorf("%w: %q is protocol-relative", ErrMalformedPath, path)
	case strings.ContainsAny(path, " \t\r\n\\"):
		return fmt.Errorf("%w: %q contains invalid characters", ErrMalformedPath, path)
	}
	p, _, _ := strings.Cut(path, "?")
	p, _, _ = strings.Cut(p, "#")
	if strings.Contains(p, "//") {
		return fmt.Errorf("%w: %q has an empty segment", ErrMalformedPath, path)
	}
	return nil
}

// normalize strips the query and fragment of a path and trims its trailing
// slash unless leaveTrailingSlash is set.
func normalize(path string, leaveTrailingSlash bool) string {
	p, _, _ := strings.Cut(path, "#")
	p, _, _ = strings.Cut(p, "?")
	if !leaveTrailingSlash && p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}
