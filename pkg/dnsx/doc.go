// Package dnsx resolves node agent hostnames through a TTL cache and
// produces connectivity diagnostics.
//
// A Resolver is an explicit cache object: share one instance between the
// HTTP transport (see Dialer) and any health checks to get process-wide
// caching without global state. Entries are keyed by hostname and
// preferred address family, live for the configured TTL (300s by
// default) and are evicted lazily on the next read after expiry.
//
// Resolution failures never surface as errors from Resolve or
// ResolveAll; they are logged and reported as "nothing found".
// TestResolution returns them in its Report instead.
package dnsx
