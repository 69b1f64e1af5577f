package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	a := App()
	a.Writer = &out
	a.ErrWriter = io.Discard
	err := a.Run(append([]string{"wingsctl"}, args...))
	return out.String(), err
}

func nodeFlags(t *testing.T, rawURL string) []string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return []string{"--host", u.Hostname(), "--port", u.Port(), "--scheme", u.Scheme, "--token", "node-secret"}
}

func newNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.11.0","architecture":"amd64"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiagnoseCommand(t *testing.T) {
	srv := newNode(t)

	out, err := runCLI(t, append(nodeFlags(t, srv.URL), "diagnose")...)
	require.NoError(t, err)

	var diag map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	require.Equal(t, true, diag["connection_test"])
	require.Equal(t, srv.URL, diag["base_url"])
}

func TestResolveCommand(t *testing.T) {
	out, err := runCLI(t, "resolve", "127.0.0.1")
	require.NoError(t, err)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, true, rep["success"])
	require.Equal(t, []any{"127.0.0.1"}, rep["all_ips"])
}

func TestSystemInfoCommand(t *testing.T) {
	srv := newNode(t)

	out, err := runCLI(t, append(nodeFlags(t, srv.URL), "system", "info", "--detailed")...)
	require.NoError(t, err)
	require.Contains(t, out, `"version": "1.11.0"`)
}

func TestTokenWebsocketCommand(t *testing.T) {
	flags := nodeFlags(t, "https://node.example.com:8080")

	out, err := runCLI(t, append(flags, "token", "websocket",
		"--server", "8f9b6c2e-3a4d-4e5f-9a1b-2c3d4e5f6a7b",
		"--user", "user-1",
		"-p", "control.console", "-p", "websocket.connect",
	)...)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "wss://node.example.com:8080/api/servers/8f9b6c2e-3a4d-4e5f-9a1b-2c3d4e5f6a7b/ws?token="))

	_, err = runCLI(t, "--host", "node.example.com", "token", "websocket", "--server", "x", "--user", "u")
	require.Error(t, err)
}
