package httputil

import (
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "remote v4 with port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "remote v6 with port", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "remote without port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "remote v4-mapped", remoteAddr: "[::ffff:10.0.0.7]:80", want: "10.0.0.7"},
		{name: "unparseable remote passes through", remoteAddr: "pipe", want: "pipe"},
		{
			name:       "headers ignored without trust",
			xff:        "1.2.3.4",
			xri:        "5.6.7.8",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "XFF leftmost entry",
			trustProxy: true,
			xff:        " 1.2.3.4 , 10.0.0.2, 10.0.0.3",
			remoteAddr: "10.0.0.1:1234",
			want:       "1.2.3.4",
		},
		{
			name:       "XFF with port",
			trustProxy: true,
			xff:        "1.2.3.4:5555",
			remoteAddr: "10.0.0.1:1234",
			want:       "1.2.3.4",
		},
		{
			name:       "garbage XFF falls back to X-Real-IP",
			trustProxy: true,
			xff:        "unknown",
			xri:        "5.6.7.8",
			remoteAddr: "10.0.0.1:1234",
			want:       "5.6.7.8",
		},
		{
			name:       "garbage headers fall back to RemoteAddr",
			trustProxy: true,
			xff:        ",",
			xri:        "not-an-ip",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "X-Real-IP v6",
			trustProxy: true,
			xri:        "2001:db8::1",
			remoteAddr: "10.0.0.1:1234",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
