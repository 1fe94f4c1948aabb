package safeurl

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	public := func(string) ([]net.IP, error) { return []net.IP{net.ParseIP("93.184.216.34")}, nil }
	internal := func(string) ([]net.IP, error) { return []net.IP{net.ParseIP("10.0.0.7")}, nil }

	tests := []struct {
		name    string
		raw     string
		opts    Options
		wantErr bool
	}{
		{"public host", "https://example.com/page", Options{Lookup: public}, false},
		{"public literal", "http://93.184.216.34/", Options{}, false},
		{"loopback literal", "http://127.0.0.1:8080/", Options{}, true},
		{"private via dns", "https://intranet.local/", Options{Lookup: internal}, true},
		{"loopback allowed", "http://127.0.0.1:8080/", Options{AllowPrivate: true}, false},
		{"file scheme", "file:///etc/passwd", Options{AllowPrivate: true}, true},
		{"relative", "/just/a/path", Options{AllowPrivate: true}, true},
		{"ipv6 loopback", "http://[::1]/", Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.raw, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q): err=%v, wantErr=%v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL_BlockedSentinel(t *testing.T) {
	_, err := ValidateURL("http://192.168.1.1/", Options{})
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("got %v, want ErrBlocked", err)
	}
}

func TestLimitedReadAll(t *testing.T) {
	got, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(got) != "hello" {
		t.Errorf("at limit: got %q, %v", got, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); err == nil {
		t.Error("over limit: expected error")
	}
}
