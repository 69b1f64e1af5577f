package dnsx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
)

// DefaultTTL is how long a resolved address is served from cache.
const DefaultTTL = 300 * time.Second

var errEmptyHost = errors.New("dnsx: empty host")

// Family is an IP address family.
type Family int

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

func (f Family) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

func (f Family) network() string {
	if f == IPv6 {
		return "ip6"
	}
	return "ip4"
}

func (f Family) other() Family {
	if f == IPv6 {
		return IPv4
	}
	return IPv6
}

func (f Family) matches(ip net.IP) bool {
	isV4 := ip.To4() != nil
	if f == IPv6 {
		return !isV4
	}
	return isV4
}

// LookupFunc has the shape of (*net.Resolver).LookupIP.
type LookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

type cacheKey struct {
	host   string
	family Family
}

type entry struct {
	addr       string
	resolvedAt time.Time
}

// Resolver caches hostname to address resolutions.
type Resolver struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]entry

	lookup LookupFunc
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL sets the cache lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLookup replaces the system resolver.
func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookup = fn
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver returns a Resolver backed by net.DefaultResolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		ttl:     DefaultTTL,
		entries: make(map[cacheKey]entry),
		lookup:  net.DefaultResolver.LookupIP,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one address for host, trying the preferred family
// first and falling back to the other one. ok is false when neither
// family resolves.
func (r *Resolver) Resolve(ctx context.Context, host string, preferIPv6 bool) (string, bool) {
	addr, err := r.resolve(ctx, host, preferIPv6)
	if err != nil {
		if !errors.Is(err, errEmptyHost) {
			r.logger(ctx).Warn("dns resolution failed", "host", normalizeHost(host), "error", err)
		}
		return "", false
	}
	return addr, true
}

// resolve is Resolve with the last lookup error kept. A fallback answer
// is cached under the preferred family.
func (r *Resolver) resolve(ctx context.Context, host string, preferIPv6 bool) (string, error) {
	host = normalizeHost(host)
	if host == "" {
		return "", errEmptyHost
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	pref := IPv4
	if preferIPv6 {
		pref = IPv6
	}
	key := cacheKey{host: host, family: pref}

	if addr, ok := r.cached(key); ok {
		return addr, nil
	}

	addr, err := r.lookupFamily(ctx, host, pref)
	if err != nil {
		r.logger(ctx).Debug("dns lookup failed, trying other family",
			"host", host,
			"family", pref.String(),
			"error", err,
		)
		addr, err = r.lookupFamily(ctx, host, pref.other())
	}
	if err != nil {
		return "", err
	}

	r.store(key, addr)
	return addr, nil
}

// resolveFamily answers for exactly one family, without fallback.
func (r *Resolver) resolveFamily(ctx context.Context, host string, fam Family) (string, error) {
	host = normalizeHost(host)
	if host == "" {
		return "", errEmptyHost
	}
	key := cacheKey{host: host, family: fam}
	if addr, ok := r.cached(key); ok && fam.matches(net.ParseIP(addr)) {
		return addr, nil
	}

	addr, err := r.lookupFamily(ctx, host, fam)
	if err != nil {
		return "", err
	}
	r.store(key, addr)
	return addr, nil
}

// ResolveAll returns every distinct address of host, IPv4 first. It is
// never served from cache.
func (r *Resolver) ResolveAll(ctx context.Context, host string) []string {
	host = normalizeHost(host)
	if host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, fam := range []Family{IPv4, IPv6} {
		ips, err := r.lookup(ctx, fam.network(), host)
		if err != nil {
			r.logger(ctx).Debug("dns lookup failed",
				"host", host,
				"family", fam.String(),
				"error", err,
			)
			continue
		}
		for _, ip := range ips {
			if !fam.matches(ip) {
				continue
			}
			s := ip.String()
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Report is the outcome of TestResolution.
type Report struct {
	Hostname string            `json:"hostname"`
	IPv4     string            `json:"ipv4,omitempty"`
	IPv6     string            `json:"ipv6,omitempty"`
	AllIPs   []string          `json:"all_ips"`
	Duration time.Duration     `json:"-"`
	TimeMS   float64           `json:"resolution_time_ms"`
	Success  bool              `json:"success"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// TestResolution looks up both families independently, bypassing the
// cache, and reports partial results with per-family errors.
func (r *Resolver) TestResolution(ctx context.Context, host string) Report {
	host = normalizeHost(host)
	rep := Report{Hostname: host, AllIPs: []string{}}
	start := r.now()

	for _, fam := range []Family{IPv4, IPv6} {
		addr, err := r.lookupFamily(ctx, host, fam)
		if err != nil {
			if rep.Errors == nil {
				rep.Errors = make(map[string]string)
			}
			rep.Errors[fam.String()] = err.Error()
			continue
		}
		if fam == IPv4 {
			rep.IPv4 = addr
		} else {
			rep.IPv6 = addr
		}
		rep.Success = true
	}

	if all := r.ResolveAll(ctx, host); len(all) > 0 {
		rep.AllIPs = all
		rep.Success = true
	}

	rep.Duration = r.now().Sub(start)
	rep.TimeMS = float64(rep.Duration.Microseconds()) / 1000
	return rep
}

// Stats describes the cache contents.
type Stats struct {
	Total      int `json:"total_entries"`
	Valid      int `json:"valid_entries"`
	Expired    int `json:"expired_entries"`
	TTLSeconds int `json:"cache_timeout"`
}

// Stats counts cached entries against the current TTL.
func (r *Resolver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	s := Stats{Total: len(r.entries), TTLSeconds: int(r.ttl / time.Second)}
	for _, e := range r.entries {
		if now.Sub(e.resolvedAt) < r.ttl {
			s.Valid++
		} else {
			s.Expired++
		}
	}
	return s
}

// ClearCache drops every entry.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.entries = make(map[cacheKey]entry)
	r.mu.Unlock()
}

// SetTTL changes the cache lifetime for existing and future entries.
// Non-positive values restore DefaultTTL.
func (r *Resolver) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r.mu.Lock()
	r.ttl = ttl
	r.mu.Unlock()
}

// TTL returns the cache lifetime.
func (r *Resolver) TTL() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttl
}

func (r *Resolver) cached(key cacheKey) (string, bool) {
	r.mu.RLock()
	e, ok := r.entries[key]
	ttl := r.ttl
	r.mu.RUnlock()
	if !ok {
		return "", false
	}

	if r.now().Sub(e.resolvedAt) < ttl {
		return e.addr, true
	}

	r.mu.Lock()
	// Another caller may have refreshed it meanwhile.
	if cur, ok := r.entries[key]; ok && cur.resolvedAt.Equal(e.resolvedAt) {
		delete(r.entries, key)
	}
	r.mu.Unlock()
	return "", false
}

func (r *Resolver) store(key cacheKey, addr string) {
	r.mu.Lock()
	r.entries[key] = entry{addr: addr, resolvedAt: r.now()}
	r.mu.Unlock()
}

func (r *Resolver) lookupFamily(ctx context.Context, host string, fam Family) (string, error) {
	ips, err := r.lookup(ctx, fam.network(), host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if fam.matches(ip) {
			return ip.String(), nil
		}
	}
	return "", &net.DNSError{
		Err:        "no " + fam.String() + " address",
		Name:       host,
		IsNotFound: true,
	}
}

func (r *Resolver) logger(ctx context.Context) *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return slogx.FromContext(ctx)
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return strings.ToLower(host)
}
