package jwtx

import (
	"fmt"
	"net/url"
	"strings"
)

// BackupDownloadURL returns a signed backup download link on the node.
func (i *Issuer) BackupDownloadURL(baseURL, serverUUID, backupUUID, uniqueID string) (string, error) {
	token, err := i.BackupDownloadToken(serverUUID, backupUUID, uniqueID)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("server", serverUUID)
	q.Set("backup", backupUUID)
	return joinURL(baseURL, "/download/backup", q), nil
}

// FileDownloadURL returns a signed file download link on the node.
func (i *Issuer) FileDownloadURL(baseURL, serverUUID, filePath, uniqueID string) (string, error) {
	token, err := i.FileDownloadToken(serverUUID, filePath, uniqueID)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("server", serverUUID)
	q.Set("file", filePath)
	return joinURL(baseURL, "/download/file", q), nil
}

// FileUploadURL returns a signed upload endpoint on the node.
func (i *Issuer) FileUploadURL(baseURL, serverUUID, userUUID, uniqueID string) (string, error) {
	token, err := i.FileUploadToken(serverUUID, userUUID, uniqueID)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("server", serverUUID)
	return joinURL(baseURL, "/upload/file", q), nil
}

// WebsocketURL returns the console socket URL with an embedded token.
// http and https bases become ws and wss.
func (i *Issuer) WebsocketURL(baseURL, serverUUID, userUUID string, permissions []string) (string, error) {
	token, err := i.WebsocketToken(serverUUID, userUUID, permissions)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", token)
	path := fmt.Sprintf("/api/servers/%s/ws", url.PathEscape(serverUUID))
	return joinURL(WebsocketBase(baseURL), path, q), nil
}

// WebsocketBase rewrites an http(s) base address to ws(s).
func WebsocketBase(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

func joinURL(baseURL, path string, q url.Values) string {
	return strings.TrimRight(baseURL, "/") + path + "?" + q.Encode()
}
