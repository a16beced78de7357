package clientip

import (
	"context"
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// Config is read from CLIENTIP_* variables.
type Config struct {
	Headers []string `env:"CLIENTIP_HEADERS" envSeparator:"," envDefault:"CF-Connecting-IP,X-Forwarded-For,X-Real-IP"`
}

// Resolver picks the client address from trusted headers.
type Resolver struct {
	headers []string
}

func New(cfg Config) Resolver {
	res := Resolver{}
	for _, h := range cfg.Headers {
		if h = strings.TrimSpace(h); h != "" {
			res.headers = append(res.headers, textproto.CanonicalMIMEHeaderKey(h))
		}
	}
	return res
}

// IP returns the first valid address found, or "" when none is. For
// X-Forwarded-For the left-most valid entry wins.
func (res Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if h == "X-Forwarded-For" {
			for part := range strings.SplitSeq(v, ",") {
				if ip := parseIP(part); ip != "" {
					return ip
				}
			}
			continue
		}
		if ip := parseIP(v); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP returns the canonical form of s or "".
func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware stores the resolved address in the request context.
func Middleware(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
		})
	}
}

// FromRequest prefers the address stored by Middleware and resolves from
// the peer address otherwise.
func FromRequest(r *http.Request) string {
	if ip := FromContext(r.Context()); ip != "" {
		return ip
	}
	return Resolver{}.IP(r)
}
