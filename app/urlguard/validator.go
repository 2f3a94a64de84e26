// Package urlguard decides whether a URL is safe to fetch from the public
// internet. It blocks loopback, private, link-local and reserved targets, and
// resolves hostnames up front so the eventual HTTP connection can be pinned
// to the validated addresses (DNS rebinding defense).
package urlguard

import (
	"context"
	"net"
	"net/netip"
	"net/url"
	"time"
)

// ResolvedAddr is one validated (host, port, ip) triple. The fetcher dials
// these addresses directly instead of re-resolving the hostname.
type ResolvedAddr struct {
	Host string
	Port string
	IP   netip.Addr
}

// Result is a reported validation outcome. Validation failures are results,
// never errors: callers must check Valid.
type Result struct {
	Valid  bool
	Reason string
	Addrs  []ResolvedAddr
}

type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

type Validator struct {
	lookup  LookupFunc
	timeout time.Duration
}

func NewValidator() *Validator {
	return &Validator{
		lookup: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		},
		timeout: 10 * time.Second,
	}
}

// NewValidatorWithLookup substitutes the DNS lookup, for tests.
func NewValidatorWithLookup(lookup LookupFunc) *Validator {
	return &Validator{lookup: lookup, timeout: 10 * time.Second}
}

func invalid(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// Validate checks the URL's scheme and host, resolves the hostname, and
// rejects the URL if any resolved address falls in a blocked range. On
// success the resolved address set is returned for connection pinning.
func (v *Validator) Validate(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("invalid URL")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("scheme must be http or https")
	}

	host := u.Hostname()
	if host == "" {
		return invalid("URL has no host")
	}

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	// Raw IP literal: no resolution step.
	if ip, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(ip) {
			return invalid("IP address is not publicly routable")
		}
		return Result{
			Valid: true,
			Addrs: []ResolvedAddr{{Host: host, Port: port, IP: ip.Unmap()}},
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	ips, err := v.lookup(lookupCtx, host)
	if err != nil || len(ips) == 0 {
		return invalid("hostname could not be resolved")
	}

	// Every resolved address must be routable. A single private address in
	// the answer set means the hostname can be used for rebinding.
	addrs := make([]ResolvedAddr, 0, len(ips))
	for _, ip := range ips {
		if isBlockedAddr(ip) {
			return invalid("hostname resolves to a non-public address")
		}
		addrs = append(addrs, ResolvedAddr{Host: host, Port: port, IP: ip.Unmap()})
	}

	return Result{Valid: true, Addrs: addrs}
}

// IsSafe applies the scheme and IP-literal checks without resolving or
// pinning. Used for secondary URLs discovered mid-pipeline, where a full
// validation pass is not warranted.
func (v *Validator) IsSafe(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return !isBlockedAddr(ip)
	}

	return true
}

// isBlockedAddr reports whether the address falls in a range that must never
// be fetched: loopback (127/8, ::1), RFC 1918 private (10/8, 172.16/12,
// 192.168/16) and ULA (fc00::/7), link-local (169.254/16, fe80::/10),
// unspecified (0.0.0.0, ::) and multicast.
func isBlockedAddr(ip netip.Addr) bool {
	ip = ip.Unmap()

	if !ip.IsValid() {
		return true
	}

	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
