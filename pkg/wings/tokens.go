package wings

import (
	"github.com/aussiebroadwan/wingsclient/pkg/jwtx"
)

// TokenService mints node tokens signed with the connection's current
// credential and builds the URLs that carry them.
type TokenService struct {
	*jwtx.Issuer
	conn *Connection
}

func newTokenService(conn *Connection) (*TokenService, error) {
	issuer, err := jwtx.NewIssuer(jwtx.IssuerConfig{
		Secret:    conn.cred,
		Algorithm: conn.cfg.TokenAlgorithm,
		TTL:       conn.cfg.TokenTTL,
		Issuer:    conn.cfg.TokenIssuer,
		Audience:  []string{conn.BaseURL()},
	})
	if err != nil {
		return nil, err
	}
	return &TokenService{Issuer: issuer, conn: conn}, nil
}

// WebsocketURL returns the console websocket URL for serverUUID.
func (t *TokenService) WebsocketURL(serverUUID, userUUID string, permissions []string) (string, error) {
	if _, err := validUUID("server", serverUUID); err != nil {
		return "", err
	}
	return t.Issuer.WebsocketURL(t.conn.BaseURL(), serverUUID, userUUID, permissions)
}

func (t *TokenService) FileDownloadURL(serverUUID, filePath string) (string, error) {
	if _, err := validUUID("server", serverUUID); err != nil {
		return "", err
	}
	return t.Issuer.FileDownloadURL(t.conn.BaseURL(), serverUUID, filePath, "")
}

func (t *TokenService) FileUploadURL(serverUUID, userUUID string) (string, error) {
	if _, err := validUUID("server", serverUUID); err != nil {
		return "", err
	}
	return t.Issuer.FileUploadURL(t.conn.BaseURL(), serverUUID, userUUID, "")
}

func (t *TokenService) BackupDownloadURL(serverUUID, backupUUID string) (string, error) {
	if _, err := validUUID("server", serverUUID); err != nil {
		return "", err
	}
	return t.Issuer.BackupDownloadURL(t.conn.BaseURL(), serverUUID, backupUUID, "")
}
