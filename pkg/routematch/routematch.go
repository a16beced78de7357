// Package routematch decides which request paths bypass the locale and
// session middleware: static assets, build artifacts and icon or image files.
package routematch

import (
	"net/http"
	"path"
	"slices"
	"strings"
)

// Config lists exclusions; every list is comma separated in the environment.
type Config struct {
	Prefixes   []string `env:"ROUTE_EXCLUDED_PREFIXES" envSeparator:"," envDefault:"/static/,/assets/,/health"`
	Exact      []string `env:"ROUTE_EXCLUDED_PATHS" envSeparator:"," envDefault:"/favicon.ico,/robots.txt"`
	Extensions []string `env:"ROUTE_EXCLUDED_EXTENSIONS" envSeparator:"," envDefault:".svg,.png,.jpg,.jpeg,.gif,.webp,.ico"`
}

// Matcher reports whether a path is excluded.
type Matcher struct {
	prefixes   []string
	exact      []string
	extensions []string
}

func New(cfg Config) Matcher {
	m := Matcher{
		prefixes: clean(cfg.Prefixes),
		exact:    clean(cfg.Exact),
	}
	for _, ext := range clean(cfg.Extensions) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.extensions = append(m.extensions, strings.ToLower(ext))
	}
	return m
}

// Excluded reports whether p must skip the middleware chain.
func (m Matcher) Excluded(p string) bool {
	if slices.Contains(m.exact, p) {
		return true
	}
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(p))
	return ext != "" && slices.Contains(m.extensions, ext)
}

// Request adapts Excluded for middleware skippers.
func (m Matcher) Request(r *http.Request) bool {
	return m.Excluded(r.URL.Path)
}

// Wrap applies mw only to requests that are not excluded.
func (m Matcher) Wrap(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
