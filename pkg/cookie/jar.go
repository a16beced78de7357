package cookie

import (
	"net/http"
	"strings"
	"sync"
)

// Jar is a request scoped cookie store. Reads see the incoming request
// cookies overlaid with writes made during the request; every write is
// mirrored onto the response at once, so nothing queued here can be lost by
// a later redirect on the same writer.
type Jar struct {
	w http.ResponseWriter
	r *http.Request

	mu      sync.Mutex
	written map[string]*http.Cookie
	order   []string
}

func NewJar(w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{w: w, r: r, written: make(map[string]*http.Cookie)}
}

// Get returns the current value of name. A cookie deleted during this
// request is reported as absent.
func (j *Jar) Get(name string) (*http.Cookie, bool) {
	j.mu.Lock()
	c, ok := j.written[name]
	j.mu.Unlock()
	if ok {
		if c.MaxAge < 0 {
			return nil, false
		}
		return c, true
	}

	c, err := j.r.Cookie(name)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Set writes c to the response and records it for later reads.
func (j *Jar) Set(c *http.Cookie) {
	if c == nil || c.Name == "" {
		return
	}
	http.SetCookie(j.w, c)

	j.mu.Lock()
	if _, seen := j.written[c.Name]; !seen {
		j.order = append(j.order, c.Name)
	}
	j.written[c.Name] = c
	j.mu.Unlock()
}

// Written lists the cookies set during this request in write order.
func (j *Jar) Written() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*http.Cookie, 0, len(j.order))
	for _, name := range j.order {
		out = append(out, j.written[name])
	}
	return out
}

// Request returns a shallow copy of the request whose Cookie header reflects
// the writes made so far, so downstream handlers read rotated values.
func (j *Jar) Request() *http.Request {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.written) == 0 {
		return j.r
	}

	var pairs []string
	for _, c := range j.r.Cookies() {
		if _, overwritten := j.written[c.Name]; overwritten {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	for _, name := range j.order {
		if c := j.written[name]; c.MaxAge >= 0 {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}

	r := j.r.Clone(j.r.Context())
	r.Header.Del("Cookie")
	if len(pairs) > 0 {
		r.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	return r
}
