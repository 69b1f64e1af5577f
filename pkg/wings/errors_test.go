package wings

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  int
		message string
		want    string
	}{
		{http.StatusUnauthorized, "bad token", "authentication failed: bad token"},
		{http.StatusForbidden, "", "access forbidden: Unknown error"},
		{http.StatusNotFound, "whatever", "endpoint not found: /api/servers/abc"},
		{http.StatusTooManyRequests, "slow down", "rate limit exceeded: slow down"},
		{http.StatusInternalServerError, "boom", "server error: boom"},
		{http.StatusBadGateway, "upstream", "HTTP 502: upstream"},
		{http.StatusUnprocessableEntity, "", "HTTP 422: Unknown error"},
	}

	for _, tt := range tests {
		err := httpError(tt.status, tt.message, "/api/servers/abc")
		require.EqualError(t, err, tt.want)
		require.Equal(t, tt.status, StatusCode(fmt.Errorf("wrapped: %w", err)))
	}
}

func TestHTTPErrorTypes(t *testing.T) {
	t.Parallel()

	var authErr *AuthError
	require.ErrorAs(t, httpError(http.StatusForbidden, "", "/"), &authErr)

	var reqErr *RequestError
	require.ErrorAs(t, httpError(http.StatusNotFound, "", "/"), &reqErr)
	require.True(t, reqErr.NotFound())
	require.False(t, reqErr.RateLimited())

	require.Zero(t, StatusCode(errors.New("plain")))
}

func TestConnectionErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such host")
	err := &ConnectionError{Method: "GET", URL: "http://node:8080/api/system", Attempts: 3, Reason: "dns", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "after 3 attempt(s)")
	require.Contains(t, err.Error(), "no such host")
}
