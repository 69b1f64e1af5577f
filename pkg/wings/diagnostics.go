package wings

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/dnsx"
)

// probeTimeout bounds the reachability probe in TestDNSResolution.
const probeTimeout = 5 * time.Second

// TestConnection reports whether GET /api/system succeeds. It does not
// retry.
func (c *Connection) TestConnection(ctx context.Context) bool {
	_, err := c.Get(ctx, "/api/system", WithMaxRetries(0))
	return err == nil
}

// DNSReport is a dnsx.Report plus a direct reachability probe.
type DNSReport struct {
	dnsx.Report
	Reachable      bool   `json:"reachable"`
	ReachableError string `json:"reachable_error,omitempty"`
}

// TestDNSResolution resolves the node host and probes /api/system once.
// Any HTTP answer, even an error status, counts as reachable.
func (c *Connection) TestDNSResolution(ctx context.Context) DNSReport {
	rep := DNSReport{Report: c.resolver.TestResolution(ctx, c.endpoint.Host)}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.url("/api/system"), nil)
	if err != nil {
		rep.ReachableError = err.Error()
		return rep
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		rep.ReachableError = err.Error()
		return rep
	}
	resp.Body.Close()
	rep.Reachable = true
	return rep
}

// Diagnostics is a point-in-time snapshot of the connection.
type Diagnostics struct {
	BaseURL        string     `json:"base_url"`
	Host           string     `json:"host"`
	Scheme         string     `json:"protocol"`
	Port           int        `json:"port"`
	Timeout        string     `json:"timeout"`
	CallTimeout    string     `json:"call_timeout"`
	DNSResolution  DNSReport  `json:"dns_resolution"`
	DNSCache       dnsx.Stats `json:"dns_cache"`
	ConnectionTest bool       `json:"connection_test"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Diagnostics gathers DNS, reachability and API checks. Failures are
// reported in the result, never returned.
func (c *Connection) Diagnostics(ctx context.Context) Diagnostics {
	return Diagnostics{
		BaseURL:        c.endpoint.BaseURL(),
		Host:           c.endpoint.Host,
		Scheme:         c.endpoint.Scheme,
		Port:           c.endpoint.Port,
		Timeout:        c.cfg.Timeout.String(),
		CallTimeout:    c.cfg.CallTimeout.String(),
		DNSResolution:  c.TestDNSResolution(ctx),
		DNSCache:       c.resolver.Stats(),
		ConnectionTest: c.TestConnection(ctx),
		Timestamp:      time.Now().UTC(),
	}
}
