// Package safeurl guards outbound HTTP made on behalf of callers: audited
// page URLs, webhook endpoints and HTTP routes.
package safeurl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// ErrBlocked is returned for URLs that resolve to a non-public address.
var ErrBlocked = errors.New("safeurl: address not allowed")

// Options tunes ValidateURL.
type Options struct {
	// AllowPrivate permits loopback, link-local and private ranges.
	// Tests against httptest servers need it.
	AllowPrivate bool
	// Lookup resolves hostnames. Default: net.LookupIP.
	Lookup func(host string) ([]net.IP, error)
}

// ValidateURL checks that raw is an absolute http(s) URL whose host does not
// resolve to a private, loopback, link-local or unspecified address.
func ValidateURL(raw string, opts Options) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("safeurl: parse: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("safeurl: scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("safeurl: missing host in %q", raw)
	}
	if opts.AllowPrivate {
		return u, nil
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		lookup := opts.Lookup
		if lookup == nil {
			lookup = net.LookupIP
		}
		ips, err = lookup(host)
		if err != nil {
			return nil, fmt.Errorf("safeurl: resolve %s: %w", host, err)
		}
	}
	for _, ip := range ips {
		if blocked(ip) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrBlocked, host, ip)
		}
	}
	return u, nil
}

func blocked(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast()
}

// LimitedReadAll reads at most max bytes from r and fails if more remain.
func LimitedReadAll(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("safeurl: body exceeds %d bytes", max)
	}
	return data, nil
}
