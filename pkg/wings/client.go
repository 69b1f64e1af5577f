package wings

// Client groups the node endpoints behind one Connection.
type Client struct {
	conn   *Connection
	tokens *TokenService

	System    *SystemService
	Servers   *ServerService
	Transfers *TransferService
}

// NewClient builds a Connection from cfg and the services on top of it.
func NewClient(cfg Config) (*Client, error) {
	conn, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithConnection(conn)
}

// NewClientWithConnection wraps an existing Connection.
func NewClientWithConnection(conn *Connection) (*Client, error) {
	tokens, err := newTokenService(conn)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		tokens:  tokens,
		System:  &SystemService{conn: conn},
		Servers: &ServerService{conn: conn},
	}
	c.Transfers = &TransferService{client: c}
	return c, nil
}

// Connection returns the underlying dispatcher.
func (c *Client) Connection() *Connection { return c.conn }

// Tokens returns the token service. It fails with ErrNotConfigured while
// the client has no credential to sign with.
func (c *Client) Tokens() (*TokenService, error) {
	if c.conn.AuthToken() == "" {
		return nil, ErrNotConfigured
	}
	return c.tokens, nil
}
