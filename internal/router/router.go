// Package router selects a named route for a (method, path) pair.
//
// Patterns are slash separated. A segment is either static text or a single
// {name} wildcard that matches exactly one non-empty path component. Static
// routes are tried before wildcard routes, and registration order decides
// among routes of the same class. A path that exists under another method is
// reported as no match.
package router

import (
	"fmt"
	"strings"
)

// Params holds wildcard values captured by a match.
type Params map[string]string

// Get returns the named parameter or "".
func (p Params) Get(name string) string {
	return p[name]
}

// Route is a registered (method, pattern) pair with the name of its operation.
type Route struct {
	Method  string
	Pattern string
	Name    string
}

// Match is the result of a successful lookup.
type Match struct {
	Route  Route
	Params Params
}

type segment struct {
	value    string
	wildcard bool
}

type entry struct {
	route    Route
	segments []segment
}

// Router is an immutable-after-setup route table.
type Router struct {
	static   []entry
	wildcard []entry
	seen     map[string]struct{}
}

// New returns an empty router.
func New() *Router {
	return &Router{seen: make(map[string]struct{})}
}

// Handle registers a route. It panics on a malformed pattern or a duplicate
// (method, pattern) pair.
func (r *Router) Handle(method, pattern, name string) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		panic("router: empty method")
	}
	segments, hasWildcard, err := parsePattern(pattern)
	if err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}
	key := method + " " + shape(segments)
	if _, dup := r.seen[key]; dup {
		panic(fmt.Sprintf("router: duplicate route %s %s", method, pattern))
	}
	r.seen[key] = struct{}{}

	e := entry{route: Route{Method: method, Pattern: pattern, Name: name}, segments: segments}
	if hasWildcard {
		r.wildcard = append(r.wildcard, e)
	} else {
		r.static = append(r.static, e)
	}
}

// Match finds the route for method and path.
func (r *Router) Match(method, path string) (Match, bool) {
	parts, ok := splitPath(path)
	if !ok {
		return Match{}, false
	}
	method = strings.ToUpper(method)
	for _, table := range [][]entry{r.static, r.wildcard} {
		for _, e := range table {
			if e.route.Method != method {
				continue
			}
			if params, ok := e.match(parts); ok {
				return Match{Route: e.route, Params: params}, true
			}
		}
	}
	return Match{}, false
}

// Allows reports whether any method is registered for path.
func (r *Router) Allows(path string) bool {
	parts, ok := splitPath(path)
	if !ok {
		return false
	}
	for _, table := range [][]entry{r.static, r.wildcard} {
		for _, e := range table {
			if _, ok := e.match(parts); ok {
				return true
			}
		}
	}
	return false
}

// Routes lists registered routes, static first.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.static)+len(r.wildcard))
	for _, table := range [][]entry{r.static, r.wildcard} {
		for _, e := range table {
			out = append(out, e.route)
		}
	}
	return out
}

func (e entry) match(parts []string) (Params, bool) {
	if len(parts) != len(e.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range e.segments {
		if seg.wildcard {
			if params == nil {
				params = Params{}
			}
			params[seg.value] = parts[i]
			continue
		}
		if seg.value != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func parsePattern(pattern string) ([]segment, bool, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, false, fmt.Errorf("pattern %q must start with /", pattern)
	}
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return []segment{}, false, nil
	}
	raw := strings.Split(trimmed, "/")
	segments := make([]segment, 0, len(raw))
	names := make(map[string]struct{})
	hasWildcard := false
	for _, part := range raw {
		switch {
		case part == "":
			return nil, false, fmt.Errorf("pattern %q has an empty segment", pattern)
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name := part[1 : len(part)-1]
			if name == "" || strings.ContainsAny(name, "{}") {
				return nil, false, fmt.Errorf("pattern %q has an invalid wildcard", pattern)
			}
			if _, dup := names[name]; dup {
				return nil, false, fmt.Errorf("pattern %q repeats wildcard %q", pattern, name)
			}
			names[name] = struct{}{}
			segments = append(segments, segment{value: name, wildcard: true})
			hasWildcard = true
		case strings.ContainsAny(part, "{}"):
			return nil, false, fmt.Errorf("pattern %q has a malformed segment %q", pattern, part)
		default:
			segments = append(segments, segment{value: part})
		}
	}
	return segments, hasWildcard, nil
}

// splitPath breaks a request path into components. One trailing slash is
// tolerated; empty inner components are not.
func splitPath(path string) ([]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	trimmed := strings.TrimPrefix(path, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return []string{}, true
	}
	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
	}
	return parts, true
}

// shape identifies a pattern independent of wildcard names.
func shape(segments []segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		if seg.wildcard {
			b.WriteString("{}")
		} else {
			b.WriteString(seg.value)
		}
	}
	return b.String()
}
