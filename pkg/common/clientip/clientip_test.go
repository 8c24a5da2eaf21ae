package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr only", "203.0.113.7:51234", "", "203.0.113.7"},
		{"forwarded single", "10.0.0.1:80", "198.51.100.4", "198.51.100.4"},
		{"forwarded list takes first", "10.0.0.1:80", "198.51.100.4, 10.0.0.2, 10.0.0.3", "198.51.100.4"},
		{"forwarded with spaces", "10.0.0.1:80", "  198.51.100.4 , 10.0.0.2", "198.51.100.4"},
		{"ipv6 mapped ipv4 stripped", "[::ffff:192.0.2.9]:4444", "", "192.0.2.9"},
		{"ipv6 mapped in forwarded", "10.0.0.1:80", "::ffff:192.0.2.9", "192.0.2.9"},
		{"plain ipv6", "[2001:db8::1]:9999", "", "2001:db8::1"},
		{"no port", "203.0.113.7", "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}
