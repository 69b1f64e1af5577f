package wings

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// failure is the retry class of a transport error.
type failure int

const (
	failureFatal failure = iota
	failureDNS
	failureConnect
	failureTimeout
)

func (f failure) String() string {
	switch f {
	case failureDNS:
		return "dns"
	case failureConnect:
		return "connect"
	case failureTimeout:
		return "timeout"
	}
	return "fatal"
}

func (f failure) transient() bool { return f != failureFatal }

// Substring markers for errors that arrive without structure, e.g. from a
// custom RoundTripper or a proxy. Structured checks run first.
var (
	dnsMarkers = []string{
		"could not resolve host",
		"no such host",
		"name or service not known",
		"temporary failure in name resolution",
		"server misbehaving",
	}
	connectMarkers = []string{
		"could not connect",
		"connection refused",
		"network is unreachable",
		"no route to host",
	}
	timeoutMarkers = []string{
		"timeout",
		"timed out",
	}
)

// classify decides whether err is worth retrying.
func classify(err error) failure {
	if err == nil {
		return failureFatal
	}
	if errors.Is(err, context.Canceled) {
		return failureFatal
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return failureDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return failureTimeout
		}
		return failureConnect
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return failureConnect
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) failure {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, dnsMarkers):
		return failureDNS
	case containsAny(msg, connectMarkers):
		return failureConnect
	case containsAny(msg, timeoutMarkers):
		return failureTimeout
	}
	return failureFatal
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
