package jwtx

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued node tokens unless overridden.
const DefaultTokenTTL = 15 * time.Minute

// NotBeforeSkew backdates nbf so node clocks running slightly behind
// still accept fresh tokens.
const NotBeforeSkew = 300 * time.Second

// Token type tags carried in the "type" claim.
const (
	TypeBackup = "backup"
	TypeFile   = "file"
	TypeDocker = "docker"
	TypeSystem = "system"
)

// NodeClaims are the claims the node agent reads from capability tokens.
type NodeClaims struct {
	jwt.RegisteredClaims

	ServerUUID  string   `json:"server_uuid,omitempty"`
	UserUUID    string   `json:"user_uuid,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// Action tags server action tokens, e.g. "start".
	Action string `json:"action,omitempty"`
	// Type is one of the Type* tags.
	Type       string `json:"type,omitempty"`
	BackupUUID string `json:"backup_uuid,omitempty"`
	Operation  string `json:"operation,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	// UniqueID identifies a single download/upload request.
	UniqueID string `json:"unique_id,omitempty"`

	// Extra holds any additional claims. Keys that collide with the
	// fields above are ignored on encode.
	Extra map[string]any `json:"-"`
}

type nodeClaimsJSON NodeClaims

// MarshalJSON merges Extra into the encoded claim set without letting it
// override any named claim.
func (c NodeClaims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(nodeClaimsJSON(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if isReservedClaim(k) {
			continue
		}
		if _, set := merged[k]; set {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes named claims and keeps the rest in Extra.
func (c *NodeClaims) UnmarshalJSON(data []byte) error {
	var named nodeClaimsJSON
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if isReservedClaim(k) {
			delete(all, k)
		}
	}

	*c = NodeClaims(named)
	c.Extra = nil
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

var reservedClaims = []string{
	"iss", "sub", "aud", "exp", "nbf", "iat", "jti",
	"server_uuid", "user_uuid", "permissions", "action", "type",
	"backup_uuid", "operation", "file_path", "unique_id",
}

func isReservedClaim(k string) bool {
	return slices.Contains(reservedClaims, k)
}

// Map returns the full claim set as a generic map.
func (c NodeClaims) Map() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a deep copy.
func (c NodeClaims) Clone() NodeClaims {
	out := c
	out.Audience = slices.Clone(c.Audience)
	out.Permissions = slices.Clone(c.Permissions)
	out.Extra = maps.Clone(c.Extra)
	return out
}

// stampRegistered fills the registered claims every token carries.
func stampRegistered(c *NodeClaims, issuer string, audience []string, ttl time.Duration, now time.Time) error {
	jti, err := NewJTI()
	if err != nil {
		return err
	}

	now = now.Truncate(time.Second)
	c.Issuer = issuer
	if len(audience) > 0 {
		c.Audience = jwt.ClaimStrings(slices.Clone(audience))
	}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now.Add(-NotBeforeSkew))
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.ID = jti
	return nil
}

// NewJTI returns a 128-bit hex identifier for the "jti" claim. Node
// agents key their deny lists on it.
func NewJTI() (string, error) {
	return cryptox.GenerateHexToken(cryptox.TokenSize128)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *NodeClaims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *NodeClaims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateTimes checks the ordering nbf <= iat < exp.
func (c *NodeClaims) ValidateTimes() error {
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !c.ExpiresAt.After(c.IssuedAt.Time) {
		return ErrInvalidClaim
	}
	if c.NotBefore != nil && c.NotBefore.After(c.IssuedAt.Time) {
		return ErrInvalidClaim
	}
	return nil
}
