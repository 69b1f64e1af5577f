/*
Package wings is a resilient client for the Wings node agent, the daemon
that runs containerized game and application servers on a node.

# Overview

The package is organized around three types:

  - Connection: owns the outbound channel to one node. It injects headers
    and credentials, retries transient network failures with exponential
    backoff and jitter, and classifies HTTP failures into typed errors.
  - Envelope: the normalized success/status/payload value every call
    returns.
  - Client: bundles a Connection with the System, Servers and Transfers
    service wrappers and an optional token service.

Create a Connection (or a Client) from a Config:

	conn, err := wings.New(wings.Config{
		Host:   "node1.example.com",
		Port:   8080,
		Scheme: "https",
		Token:  nodeSecret,
	})

	env, err := conn.Get(ctx, "/api/system")
	if err != nil {
		return err
	}
	version := env.Get("version", "unknown")

# Retries

Only transient failures are retried: DNS resolution errors, refused or
failed dials, and timeouts. Each retry waits

	2^attempt * (0.5 + rand[0,1)) seconds, floored to whole seconds

with a floor of half the exponential base. A call makes at most
MaxRetries+1 attempts and is bounded overall by Config.CallTimeout.
When retries run out the call fails with a *ConnectionError wrapping
the last cause.

HTTP failures are never retried:

	var authErr *wings.AuthError      // 401, 403
	var reqErr *wings.RequestError    // 404, 429, 5xx and other >= 400
	if errors.As(err, &reqErr) && reqErr.NotFound() {
		// ...
	}

# Credentials

The node secret is both the bearer credential and the HMAC key for
capability tokens. SetAuthToken swaps it for both at once:

	client.Connection().SetAuthToken(rotated)

	tokens, err := client.Tokens() // ErrNotConfigured without a secret
	if err != nil {
		return err
	}
	url, err := tokens.WebsocketURL(serverUUID, userUUID, perms)

# Transport

Connections dial through a dnsx.Resolver so DNS answers are cached for
the resolver TTL, follow at most three redirects, keep connections alive
and verify TLS unless Config.InsecureSkipVerify is set.
*/
package wings
