package middlewares

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// RouteMatcher decides which request paths the gate intercepts.
// A path is intercepted when it matches a protected pattern and no public one.
type RouteMatcher struct {
	protected []string
	public    []string
}

// NewRouteMatcher validates the glob patterns and builds a matcher
func NewRouteMatcher(protected, public []string) (*RouteMatcher, error) {
	for _, p := range append(append([]string{}, protected...), public...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid route pattern %q", p)
		}
	}
	return &RouteMatcher{protected: protected, public: public}, nil
}

// Intercepts reports whether the gate must run for path
func (m *RouteMatcher) Intercepts(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, p := range m.public {
		if match(p, path) {
			return false
		}
	}
	for _, p := range m.protected {
		if match(p, path) {
			return true
		}
	}
	return false
}

func match(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}
