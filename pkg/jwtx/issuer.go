package jwtx

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/idx"
)

// Purpose selects which claims a token carries.
type Purpose string

const (
	PurposeServerAction   Purpose = "server_action"
	PurposeWebsocket      Purpose = "websocket"
	PurposeBackup         Purpose = "backup"
	PurposeFileOperation  Purpose = "file_operation"
	PurposeFileDownload   Purpose = "file_download"
	PurposeFileUpload     Purpose = "file_upload"
	PurposeBackupDownload Purpose = "backup_download"
	PurposeTransfer       Purpose = "transfer"
	PurposeDocker         Purpose = "docker"
	PurposeSystem         Purpose = "system"
	PurposeAPI            Purpose = "api"
)

// Subject is the resource a token is scoped to. Each purpose reads only
// the fields it needs.
type Subject struct {
	ServerUUID  string
	UserUUID    string
	Permissions []string

	Action     string
	BackupUUID string
	Operation  string
	FilePath   string
	// UniqueID defaults to a fresh id for download and upload tokens.
	UniqueID string

	// Extra is only carried by PurposeAPI tokens.
	Extra map[string]any
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	// Secret is read on every Issue call. Required for signing, not for
	// construction.
	Secret SecretSource
	// Algorithm defaults to HS256.
	Algorithm string
	// TTL defaults to DefaultTokenTTL.
	TTL time.Duration
	// Issuer is placed in "iss", usually the panel URL.
	Issuer string
	// Audience is placed in "aud", usually the node URL.
	Audience []string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Issuer mints capability tokens for the node agent. Safe for concurrent
// use; setters are serialized against issuing.
type Issuer struct {
	mu       sync.RWMutex
	signer   Signer
	secret   SecretSource
	ttl      time.Duration
	issuer   string
	audience []string
	now      func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	signer, err := NewSignerHMAC(alg, cfg.Secret)
	if err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Issuer{
		signer:   signer,
		secret:   cfg.Secret,
		ttl:      ttl,
		issuer:   cfg.Issuer,
		audience: slices.Clone(cfg.Audience),
		now:      now,
	}, nil
}

// IssueOption tweaks a single Issue call.
type IssueOption func(*issueOptions)

type issueOptions struct {
	ttl time.Duration
}

// WithTTL overrides the issuer TTL for one token.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// Claims assembles the claim set for purpose without signing it.
func (i *Issuer) Claims(purpose Purpose, sub Subject, opts ...IssueOption) (NodeClaims, error) {
	i.mu.RLock()
	o := issueOptions{ttl: i.ttl}
	issuer, audience, now := i.issuer, i.audience, i.now
	i.mu.RUnlock()

	for _, opt := range opts {
		opt(&o)
	}

	c, err := purposeClaims(purpose, sub)
	if err != nil {
		return NodeClaims{}, err
	}
	if err := stampRegistered(&c, issuer, audience, o.ttl, now()); err != nil {
		return NodeClaims{}, fmt.Errorf("jwtx: token id: %w", err)
	}
	return c, nil
}

// Issue builds and signs a token for purpose.
func (i *Issuer) Issue(purpose Purpose, sub Subject, opts ...IssueOption) (string, error) {
	i.mu.RLock()
	signer := i.signer
	i.mu.RUnlock()

	if err := signer.Validate(); err != nil {
		return "", err
	}

	c, err := i.Claims(purpose, sub, opts...)
	if err != nil {
		return "", err
	}
	return signer.Sign(c)
}

func purposeClaims(purpose Purpose, sub Subject) (NodeClaims, error) {
	var c NodeClaims

	scoped := func() {
		c.ServerUUID = sub.ServerUUID
		c.UserUUID = sub.UserUUID
		c.Permissions = slices.Clone(sub.Permissions)
	}
	uniqueID := func() string {
		if sub.UniqueID != "" {
			return sub.UniqueID
		}
		return idx.NewUniqueID()
	}

	switch purpose {
	case PurposeServerAction:
		scoped()
		c.Action = sub.Action
	case PurposeWebsocket:
		scoped()
	case PurposeBackup:
		scoped()
		c.Type = TypeBackup
		c.BackupUUID = sub.BackupUUID
		c.Operation = sub.Operation
	case PurposeFileOperation:
		scoped()
		c.Type = TypeFile
		c.Operation = sub.Operation
		c.FilePath = sub.FilePath
	case PurposeDocker:
		scoped()
		c.Type = TypeDocker
		c.Operation = sub.Operation
	case PurposeSystem:
		scoped()
		c.Type = TypeSystem
		c.Operation = sub.Operation
	case PurposeAPI:
		scoped()
		c.Extra = maps.Clone(sub.Extra)
	case PurposeFileDownload:
		c.ServerUUID = sub.ServerUUID
		c.FilePath = sub.FilePath
		c.UniqueID = uniqueID()
	case PurposeFileUpload:
		c.ServerUUID = sub.ServerUUID
		c.UserUUID = sub.UserUUID
		c.UniqueID = uniqueID()
	case PurposeBackupDownload:
		c.ServerUUID = sub.ServerUUID
		c.BackupUUID = sub.BackupUUID
		c.UniqueID = uniqueID()
	case PurposeTransfer:
		c.Subject = sub.ServerUUID
	default:
		return NodeClaims{}, fmt.Errorf("%w: unknown purpose %q", ErrInvalidClaim, purpose)
	}

	if purpose == PurposeTransfer {
		if c.Subject == "" {
			return NodeClaims{}, fmt.Errorf("%w: transfer token needs a server uuid", ErrInvalidClaim)
		}
	} else if c.ServerUUID == "" {
		return NodeClaims{}, fmt.Errorf("%w: %s token needs a server uuid", ErrInvalidClaim, purpose)
	}
	return c, nil
}

// ServerActionToken scopes a token to a server action such as "start".
func (i *Issuer) ServerActionToken(serverUUID, userUUID string, permissions []string, action string) (string, error) {
	return i.Issue(PurposeServerAction, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		Action:      action,
	})
}

// WebsocketToken authorizes a console websocket session.
func (i *Issuer) WebsocketToken(serverUUID, userUUID string, permissions []string) (string, error) {
	return i.Issue(PurposeWebsocket, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
	})
}

// BackupToken authorizes a backup operation.
func (i *Issuer) BackupToken(serverUUID, userUUID string, permissions []string, backupUUID, operation string) (string, error) {
	return i.Issue(PurposeBackup, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		BackupUUID:  backupUUID,
		Operation:   operation,
	})
}

// FileOperationToken authorizes a file operation, optionally on one path.
func (i *Issuer) FileOperationToken(serverUUID, userUUID string, permissions []string, operation, filePath string) (string, error) {
	return i.Issue(PurposeFileOperation, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		Operation:   operation,
		FilePath:    filePath,
	})
}

// DockerOperationToken authorizes a container level operation.
func (i *Issuer) DockerOperationToken(serverUUID, userUUID string, permissions []string, operation string) (string, error) {
	return i.Issue(PurposeDocker, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		Operation:   operation,
	})
}

// SystemOperationToken authorizes a node level operation.
func (i *Issuer) SystemOperationToken(serverUUID, userUUID string, permissions []string, operation string) (string, error) {
	return i.Issue(PurposeSystem, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		Operation:   operation,
	})
}

// APIToken carries arbitrary extra claims alongside the scoped ones.
func (i *Issuer) APIToken(serverUUID, userUUID string, permissions []string, extra map[string]any) (string, error) {
	return i.Issue(PurposeAPI, Subject{
		ServerUUID:  serverUUID,
		UserUUID:    userUUID,
		Permissions: permissions,
		Extra:       extra,
	})
}

func (i *Issuer) FileDownloadToken(serverUUID, filePath, uniqueID string) (string, error) {
	return i.Issue(PurposeFileDownload, Subject{ServerUUID: serverUUID, FilePath: filePath, UniqueID: uniqueID})
}

func (i *Issuer) FileUploadToken(serverUUID, userUUID, uniqueID string) (string, error) {
	return i.Issue(PurposeFileUpload, Subject{ServerUUID: serverUUID, UserUUID: userUUID, UniqueID: uniqueID})
}

func (i *Issuer) BackupDownloadToken(serverUUID, backupUUID, uniqueID string) (string, error) {
	return i.Issue(PurposeBackupDownload, Subject{ServerUUID: serverUUID, BackupUUID: backupUUID, UniqueID: uniqueID})
}

// TransferToken authorizes a node to node transfer handshake.
func (i *Issuer) TransferToken(serverUUID string) (string, error) {
	return i.Issue(PurposeTransfer, Subject{ServerUUID: serverUUID})
}

// Decode verifies the signature and time claims of token.
func (i *Issuer) Decode(token string) (*NodeClaims, error) {
	v, err := i.verifier()
	if err != nil {
		return nil, err
	}
	return v.Verify(token)
}

// IsExpired treats any token that fails to decode as expired.
func (i *Issuer) IsExpired(token string) bool {
	c, err := i.Decode(token)
	if err != nil {
		return true
	}
	i.mu.RLock()
	now := i.now
	i.mu.RUnlock()
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now())
}

// Expiration returns the exp claim of a valid token.
func (i *Issuer) Expiration(token string) (time.Time, bool) {
	c, err := i.Decode(token)
	if err != nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

func (i *Issuer) verifier() (Verifier, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, err := NewVerifierHMAC(i.signer.Alg(), i.secret, VerifyOptions{Now: i.now})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetAlgorithm switches the signing algorithm for later tokens.
func (i *Issuer) SetAlgorithm(alg string) error {
	signer, err := NewSignerHMAC(alg, i.secret)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.signer = signer
	i.mu.Unlock()
	return nil
}

func (i *Issuer) Algorithm() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.signer.Alg()
}

// SetTTL changes the default lifetime. Non-positive values are ignored.
func (i *Issuer) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	i.mu.Lock()
	i.ttl = ttl
	i.mu.Unlock()
}

func (i *Issuer) TTL() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ttl
}

func (i *Issuer) SetIssuer(issuer string) {
	i.mu.Lock()
	i.issuer = issuer
	i.mu.Unlock()
}

func (i *Issuer) SetAudience(audience ...string) {
	i.mu.Lock()
	i.audience = slices.Clone(audience)
	i.mu.Unlock()
}
