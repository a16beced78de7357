package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authstarter/pkg/clientip"
)

func TestResolver_IP(t *testing.T) {
	t.Parallel()

	res := clientip.New(clientip.Config{Headers: []string{"cf-connecting-ip", " X-Forwarded-For", "X-Real-IP", ""}})

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "first configured header wins",
			headers:    map[string]string{"CF-Connecting-IP": "203.0.113.195", "X-Real-IP": "10.0.0.1"},
			remoteAddr: "172.16.0.1:54321",
			want:       "203.0.113.195",
		},
		{
			name:       "left-most valid forwarded entry",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.178, 203.0.113.195"},
			remoteAddr: "10.0.0.1:54321",
			want:       "198.51.100.178",
		},
		{
			name:       "invalid header falls through",
			headers:    map[string]string{"CF-Connecting-IP": "not-an-ip", "X-Real-IP": "192.168.1.1"},
			remoteAddr: "10.0.0.1:54321",
			want:       "192.168.1.1",
		},
		{
			name:       "peer address",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "peer without port",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "nothing valid",
			remoteAddr: "pipe",
			want:       "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, res.IP(r))
		})
	}
}

func TestUntrustedHeadersAreIgnored(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:41000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	assert.Equal(t, "203.0.113.7", clientip.New(clientip.Config{}).IP(r))
	assert.Equal(t, "203.0.113.7", clientip.FromRequest(r))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = clientip.FromRequest(r)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "192.0.2.10")
	clientip.Middleware(clientip.New(clientip.Config{Headers: []string{"X-Real-IP"}}))(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.10", got)
}
