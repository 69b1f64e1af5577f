package dnsx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Dialer dials through a Resolver so transport connections reuse cached
// answers. Each family is resolved at most once per dial, preferred
// family first. When nothing resolves, the last lookup error is returned
// inside a *net.OpError.
type Dialer struct {
	Resolver   *Resolver
	Dialer     *net.Dialer
	PreferIPv6 bool
}

// NewDialer returns a Dialer with the given connect timeout and TCP
// keep-alive period.
func NewDialer(r *Resolver, connectTimeout, keepAlive time.Duration) *Dialer {
	return &Dialer{
		Resolver: r,
		Dialer: &net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: keepAlive,
		},
	}
}

// DialContext has the signature expected by http.Transport.DialContext.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("dnsx: invalid address %q: %w", address, err)
	}

	nd := d.Dialer
	if nd == nil {
		nd = &net.Dialer{}
	}

	// Literal addresses need no resolution.
	if net.ParseIP(host) != nil || d.Resolver == nil {
		return nd.DialContext(ctx, network, address)
	}

	var (
		errs      []error
		lookupErr error
	)
	for _, fam := range d.families(network) {
		ip, err := d.Resolver.resolveFamily(ctx, host, fam)
		if err != nil {
			lookupErr = err
			continue
		}
		conn, err := nd.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	switch len(errs) {
	case 0:
		return nil, &net.OpError{Op: "dial", Net: network, Err: asDNSError(host, lookupErr)}
	case 1:
		return nil, errs[0]
	}
	return nil, errors.Join(errs...)
}

// families lists the address families to try for network, preferred
// one first. The second family is only resolved when the first fails.
func (d *Dialer) families(network string) []Family {
	switch network {
	case "tcp4", "udp4":
		return []Family{IPv4}
	case "tcp6", "udp6":
		return []Family{IPv6}
	}
	if d.PreferIPv6 {
		return []Family{IPv6, IPv4}
	}
	return []Family{IPv4, IPv6}
}

func asDNSError(host string, err error) *net.DNSError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr
	}
	msg := "no such host"
	if err != nil {
		msg = err.Error()
	}
	return &net.DNSError{Err: msg, Name: host, IsNotFound: err == nil}
}
