// Package addr parses "host[:port]" configuration strings and resolves host
// names to IPv4 literals.
package addr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

var (
	ErrEmptyHost = errors.New("addr: empty host")
	ErrNoIPv4    = errors.New("addr: no IPv4 address for host")
)

// Addr is a parsed "host[:port]" string. HasPort is false when the string
// had no colon; the port must then be supplied separately.
type Addr struct {
	Host    string
	Port    uint16
	HasPort bool
}

// Parse splits s on ':' after trimming surrounding whitespace. The first
// token is the host and the second, when present, the port; further tokens
// are ignored.
func Parse(s string) (Addr, error) {
	tokens := strings.Split(strings.TrimSpace(s), ":")
	a := Addr{Host: strings.TrimSpace(tokens[0])}
	if a.Host == "" {
		return Addr{}, ErrEmptyHost
	}
	if len(tokens) < 2 {
		return a, nil
	}
	port, err := strconv.ParseUint(strings.TrimSpace(tokens[1]), 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("addr: bad port in %q: %w", s, err)
	}
	a.Port = uint16(port)
	a.HasPort = true
	return a, nil
}

func (a Addr) String() string {
	if !a.HasPort {
		return a.Host
	}
	return a.Host + ":" + strconv.Itoa(int(a.Port))
}

// Resolver looks up the IPv4 address of a host name.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

type netResolver struct{ r *net.Resolver }

// DefaultResolver uses the system resolver.
var DefaultResolver Resolver = netResolver{r: net.DefaultResolver}

func (n netResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	ips, err := n.r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if ip = ip.Unmap(); ip.Is4() {
			return ip.String(), nil
		}
	}
	return "", ErrNoIPv4
}

// ResolveIPv4 returns host unchanged when it is already an IPv4 literal and
// consults r otherwise. A nil r means DefaultResolver.
func ResolveIPv4(ctx context.Context, r Resolver, host string) (string, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		if ip = ip.Unmap(); ip.Is4() {
			return ip.String(), nil
		}
		return "", ErrNoIPv4
	}
	if r == nil {
		r = DefaultResolver
	}
	return r.LookupIPv4(ctx, host)
}
