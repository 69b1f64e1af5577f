package wings

import (
	"context"
)

// Transfer states reported by the node in the "status" field.
const (
	TransferInProgress = "in_progress"
	TransferCompleted  = "completed"
	TransferFailed     = "failed"
)

// TransferService moves servers between nodes. Calls go to the node
// currently hosting the server.
type TransferService struct {
	client *Client
}

func (t *TransferService) Status(ctx context.Context, serverUUID string) (*Envelope, error) {
	p, err := serverPath(serverUUID, "transfer")
	if err != nil {
		return nil, err
	}
	return t.client.conn.Get(ctx, p)
}

// State returns the "status" field of the transfer status.
func (t *TransferService) State(ctx context.Context, serverUUID string) (string, error) {
	env, err := t.Status(ctx, serverUUID)
	if err != nil {
		return "", err
	}
	state, _ := env.Get("status", "").(string)
	return state, nil
}

// Start begins an outgoing transfer. data is the panel's transfer
// definition, usually carrying the destination URL and a Token.
func (t *TransferService) Start(ctx context.Context, serverUUID string, data any) (*Envelope, error) {
	p, err := serverPath(serverUUID, "transfer")
	if err != nil {
		return nil, err
	}
	return t.client.conn.Post(ctx, p, data)
}

func (t *TransferService) Cancel(ctx context.Context, serverUUID string) (*Envelope, error) {
	p, err := serverPath(serverUUID, "transfer")
	if err != nil {
		return nil, err
	}
	return t.client.conn.Delete(ctx, p)
}

func (t *TransferService) Logs(ctx context.Context, serverUUID string) (*Envelope, error) {
	p, err := serverPath(serverUUID, "transfer", "logs")
	if err != nil {
		return nil, err
	}
	return t.client.conn.Get(ctx, p)
}

// Token mints a transfer token for serverUUID. It requires a credential.
func (t *TransferService) Token(serverUUID string) (string, error) {
	id, err := validUUID("server", serverUUID)
	if err != nil {
		return "", err
	}
	tokens, err := t.client.Tokens()
	if err != nil {
		return "", err
	}
	return tokens.TransferToken(id)
}
