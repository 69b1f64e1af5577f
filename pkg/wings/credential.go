package wings

import "sync"

// credential is the node secret shared by the Authorization header and
// the token signer. Writes are serialized; reads see either the old or
// the new secret, never a mix.
type credential struct {
	mu    sync.RWMutex
	token string
}

func (c *credential) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *credential) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Secret implements jwtx.SecretSource.
func (c *credential) Secret() []byte {
	return []byte(c.Get())
}
