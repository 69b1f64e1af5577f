package jwtx_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/idx"
	"github.com/aussiebroadwan/wingsclient/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testSecret = "node-secret-0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newIssuer(t *testing.T, secret string, mutate ...func(*jwtx.IssuerConfig)) *jwtx.Issuer {
	t.Helper()
	cfg := jwtx.IssuerConfig{
		Secret:   jwtx.StaticSecret(secret),
		Issuer:   "https://panel.example.com",
		Audience: []string{"https://node1.example.com:8080"},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	iss, err := jwtx.NewIssuer(cfg)
	require.NoError(t, err)
	return iss
}

func TestWebsocketToken_Scenario(t *testing.T) {
	iss := newIssuer(t, testSecret, func(c *jwtx.IssuerConfig) { c.TTL = 600 * time.Second })

	token, err := iss.WebsocketToken("abc", "u1", []string{"console"})
	require.NoError(t, err)

	claims, err := iss.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "abc", claims.ServerUUID)
	require.Equal(t, "u1", claims.UserUUID)
	require.Equal(t, []string{"console"}, claims.Permissions)
	require.Equal(t, int64(600), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
	require.Empty(t, claims.Action)
}

func TestIssue_TimeClaimsForEveryPurpose(t *testing.T) {
	iss := newIssuer(t, testSecret, func(c *jwtx.IssuerConfig) { c.TTL = 15 * time.Minute })

	sub := jwtx.Subject{
		ServerUUID:  "3f1c4b4e-6f2a-4b5e-9d0f-2a7d6f8e9c01",
		UserUUID:    "u1",
		Permissions: []string{"control.start"},
		BackupUUID:  "b1",
		FilePath:    "/server.properties",
	}
	purposes := []jwtx.Purpose{
		jwtx.PurposeServerAction, jwtx.PurposeWebsocket, jwtx.PurposeBackup,
		jwtx.PurposeFileOperation, jwtx.PurposeFileDownload, jwtx.PurposeFileUpload,
		jwtx.PurposeBackupDownload, jwtx.PurposeTransfer, jwtx.PurposeDocker,
		jwtx.PurposeSystem, jwtx.PurposeAPI,
	}

	seen := map[string]bool{}
	for _, p := range purposes {
		t.Run(string(p), func(t *testing.T) {
			token, err := iss.Issue(p, sub)
			require.NoError(t, err)

			c, err := iss.Decode(token)
			require.NoError(t, err)
			require.NoError(t, c.ValidateTimes())
			require.Equal(t, int64(900), c.ExpiresAt.Unix()-c.IssuedAt.Unix())
			require.Equal(t, int64(300), c.IssuedAt.Unix()-c.NotBefore.Unix())
			require.Equal(t, "https://panel.example.com", c.Issuer)
			require.Equal(t, []string{"https://node1.example.com:8080"}, []string(c.Audience))
			require.False(t, iss.IsExpired(token))

			require.Len(t, c.ID, 32)
			require.False(t, seen[c.ID], "jti must be unique")
			seen[c.ID] = true
		})
	}
}

func TestIssue_PurposeClaims(t *testing.T) {
	iss := newIssuer(t, testSecret)
	const srv = "3f1c4b4e-6f2a-4b5e-9d0f-2a7d6f8e9c01"

	t.Run("server action carries action tag", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeServerAction, jwtx.Subject{ServerUUID: srv, UserUUID: "u1", Action: "start"})
		require.NoError(t, err)
		require.Equal(t, "start", c.Action)
		require.Empty(t, c.Type)
	})

	t.Run("backup operation", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeBackup, jwtx.Subject{ServerUUID: srv, BackupUUID: "b1", Operation: "restore"})
		require.NoError(t, err)
		require.Equal(t, jwtx.TypeBackup, c.Type)
		require.Equal(t, "b1", c.BackupUUID)
		require.Equal(t, "restore", c.Operation)
	})

	t.Run("file operation", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeFileOperation, jwtx.Subject{ServerUUID: srv, Operation: "write", FilePath: "/a.txt"})
		require.NoError(t, err)
		require.Equal(t, jwtx.TypeFile, c.Type)
		require.Equal(t, "/a.txt", c.FilePath)
	})

	t.Run("docker and system tags", func(t *testing.T) {
		d, err := iss.Claims(jwtx.PurposeDocker, jwtx.Subject{ServerUUID: srv})
		require.NoError(t, err)
		require.Equal(t, jwtx.TypeDocker, d.Type)

		s, err := iss.Claims(jwtx.PurposeSystem, jwtx.Subject{ServerUUID: srv})
		require.NoError(t, err)
		require.Equal(t, jwtx.TypeSystem, s.Type)
	})

	t.Run("download gets a default unique id", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeFileDownload, jwtx.Subject{ServerUUID: srv, FilePath: "/logs/latest.log"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(c.UniqueID, idx.UniqueIDPrefix))
		require.Empty(t, c.UserUUID)
		require.Empty(t, c.Permissions)
	})

	t.Run("caller unique id is kept", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeFileUpload, jwtx.Subject{ServerUUID: srv, UserUUID: "u1", UniqueID: "req-42"})
		require.NoError(t, err)
		require.Equal(t, "req-42", c.UniqueID)
	})

	t.Run("transfer is subject only", func(t *testing.T) {
		c, err := iss.Claims(jwtx.PurposeTransfer, jwtx.Subject{ServerUUID: srv, UserUUID: "ignored"})
		require.NoError(t, err)
		require.Equal(t, srv, c.Subject)
		require.Empty(t, c.ServerUUID)
		require.Empty(t, c.UserUUID)
	})

	t.Run("api token merges extra claims", func(t *testing.T) {
		token, err := iss.APIToken(srv, "u1", nil, map[string]any{"scope": "files", "exp": 1})
		require.NoError(t, err)

		c, err := iss.Decode(token)
		require.NoError(t, err)
		require.Equal(t, "files", c.Extra["scope"])
		require.NotEqual(t, int64(1), c.ExpiresAt.Unix())
	})

	t.Run("missing server uuid", func(t *testing.T) {
		_, err := iss.Issue(jwtx.PurposeWebsocket, jwtx.Subject{UserUUID: "u1"})
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)

		_, err = iss.TransferToken("")
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		_, err := iss.Issue(jwtx.Purpose("nope"), jwtx.Subject{ServerUUID: srv})
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})
}

func TestIssue_TTLOverride(t *testing.T) {
	iss := newIssuer(t, testSecret)

	c, err := iss.Claims(jwtx.PurposeWebsocket, jwtx.Subject{ServerUUID: "s"}, jwtx.WithTTL(time.Minute))
	require.NoError(t, err)
	require.Equal(t, time.Minute, c.ExpiresAt.Sub(c.IssuedAt.Time))
	require.Equal(t, jwtx.DefaultTokenTTL, iss.TTL())
}

func TestIssue_MissingSecret(t *testing.T) {
	iss := newIssuer(t, "")

	_, err := iss.WebsocketToken("abc", "u1", nil)
	require.ErrorIs(t, err, jwtx.ErrMissingSecret)

	_, err = iss.Decode("a.b.c")
	require.ErrorIs(t, err, jwtx.ErrMissingSecret)
	require.True(t, iss.IsExpired("a.b.c"))
}

func TestDecode_WrongSecretFails(t *testing.T) {
	a := newIssuer(t, testSecret)
	b := newIssuer(t, "a-completely-different-secret")

	token, err := a.WebsocketToken("abc", "u1", []string{"console"})
	require.NoError(t, err)

	_, err = b.Decode(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	require.True(t, b.IsExpired(token))

	_, ok := b.Expiration(token)
	require.False(t, ok)
}

func TestDecode_Expired(t *testing.T) {
	clock := &testClock{now: time.Unix(1700000000, 0).UTC()}
	iss := newIssuer(t, testSecret, func(c *jwtx.IssuerConfig) {
		c.TTL = time.Minute
		c.Now = clock.Now
	})

	token, err := iss.TransferToken("abc")
	require.NoError(t, err)

	exp, ok := iss.Expiration(token)
	require.True(t, ok)
	require.WithinDuration(t, clock.Now().Add(time.Minute), exp, 0)

	clock.Advance(2 * time.Minute)
	_, err = iss.Decode(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.True(t, iss.IsExpired(token))
}

func TestDecode_Garbage(t *testing.T) {
	iss := newIssuer(t, testSecret)

	_, err := iss.Decode("not-a-token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
	require.True(t, iss.IsExpired("not-a-token"))
}

func TestSetAlgorithm(t *testing.T) {
	iss := newIssuer(t, testSecret)
	require.Equal(t, jwtx.AlgHS256, iss.Algorithm())

	require.NoError(t, iss.SetAlgorithm("hs512"))
	require.Equal(t, jwtx.AlgHS512, iss.Algorithm())

	token, err := iss.WebsocketToken("abc", "u1", nil)
	require.NoError(t, err)
	_, err = iss.Decode(token)
	require.NoError(t, err)

	require.ErrorIs(t, iss.SetAlgorithm("RS256"), jwtx.ErrUnsupportedAlg)
	require.Equal(t, jwtx.AlgHS512, iss.Algorithm())

	// a verifier pinned to HS256 rejects HS512 tokens
	v, err := jwtx.NewVerifierHMAC(jwtx.AlgHS256, jwtx.StaticSecret(testSecret), jwtx.VerifyOptions{})
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestNewIssuer_RejectsUnknownAlgorithm(t *testing.T) {
	_, err := jwtx.NewIssuer(jwtx.IssuerConfig{Algorithm: "none"})
	require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)
}

func TestVerifier_IssuerAndAudience(t *testing.T) {
	iss := newIssuer(t, testSecret)
	token, err := iss.WebsocketToken("abc", "u1", nil)
	require.NoError(t, err)

	v, err := jwtx.NewVerifierHMAC(jwtx.AlgHS256, jwtx.StaticSecret(testSecret), jwtx.VerifyOptions{
		Issuer:   "https://panel.example.com",
		Audience: []string{"https://node1.example.com:8080"},
	})
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.NoError(t, err)

	iss.SetIssuer("https://other-panel.example.com")
	iss.SetAudience("https://node9.example.com:8080")
	other, err := iss.WebsocketToken("abc", "u1", nil)
	require.NoError(t, err)

	_, err = v.Verify(other)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

type rotatingSecret struct {
	mu  sync.RWMutex
	key []byte
}

func (r *rotatingSecret) Secret() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.key
}

func (r *rotatingSecret) Set(k string) {
	r.mu.Lock()
	r.key = []byte(k)
	r.mu.Unlock()
}

func TestIssuer_FollowsRotatedSecret(t *testing.T) {
	secret := &rotatingSecret{key: []byte("first-secret")}
	iss, err := jwtx.NewIssuer(jwtx.IssuerConfig{Secret: secret})
	require.NoError(t, err)

	old, err := iss.WebsocketToken("abc", "u1", nil)
	require.NoError(t, err)

	secret.Set("second-secret")

	_, err = iss.Decode(old)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)

	fresh, err := iss.WebsocketToken("abc", "u1", nil)
	require.NoError(t, err)
	_, err = iss.Decode(fresh)
	require.NoError(t, err)
}
