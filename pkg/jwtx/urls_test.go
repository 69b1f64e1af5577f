package jwtx_test

import (
	"net/url"
	"testing"

	"github.com/aussiebroadwan/wingsclient/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	iss := newIssuer(t, testSecret)

	tests := []struct {
		base   string
		scheme string
	}{
		{"https://node1.example.com:8080", "wss"},
		{"http://node1.example.com:8080/", "ws"},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			raw, err := iss.WebsocketURL(tt.base, "abc", "u1", []string{"console"})
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			require.Equal(t, tt.scheme, u.Scheme)
			require.Equal(t, "node1.example.com:8080", u.Host)
			require.Equal(t, "/api/servers/abc/ws", u.Path)

			c, err := iss.Decode(u.Query().Get("token"))
			require.NoError(t, err)
			require.Equal(t, []string{"console"}, c.Permissions)
		})
	}
}

func TestDownloadAndUploadURLs(t *testing.T) {
	iss := newIssuer(t, testSecret)
	base := "https://node1.example.com:8080"

	t.Run("backup download", func(t *testing.T) {
		raw, err := iss.BackupDownloadURL(base, "srv", "bk", "")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "/download/backup", u.Path)
		require.Equal(t, "srv", u.Query().Get("server"))
		require.Equal(t, "bk", u.Query().Get("backup"))

		c, err := iss.Decode(u.Query().Get("token"))
		require.NoError(t, err)
		require.Equal(t, "bk", c.BackupUUID)
		require.NotEmpty(t, c.UniqueID)
	})

	t.Run("file download escapes the path", func(t *testing.T) {
		raw, err := iss.FileDownloadURL(base, "srv", "/world/level dat&x", "u-1")
		require.NoError(t, err)
		require.Contains(t, raw, "file=%2Fworld%2Flevel+dat%26x")

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "/download/file", u.Path)
		require.Equal(t, "/world/level dat&x", u.Query().Get("file"))
	})

	t.Run("file upload", func(t *testing.T) {
		raw, err := iss.FileUploadURL(base+"/", "srv", "u1", "")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "/upload/file", u.Path)

		c, err := iss.Decode(u.Query().Get("token"))
		require.NoError(t, err)
		require.Equal(t, "u1", c.UserUUID)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := newIssuer(t, "").FileUploadURL(base, "srv", "u1", "")
		require.ErrorIs(t, err, jwtx.ErrMissingSecret)
	})
}

func TestWebsocketBase(t *testing.T) {
	require.Equal(t, "wss://a:1", jwtx.WebsocketBase("https://a:1"))
	require.Equal(t, "ws://a:1", jwtx.WebsocketBase("http://a:1"))
	require.Equal(t, "ftp://a", jwtx.WebsocketBase("ftp://a"))
}
