package wings

import (
	"context"
	"net/url"
)

// SystemService wraps the node level endpoints.
type SystemService struct {
	conn *Connection
}

// Info returns node details. detailed selects the v2 payload.
func (s *SystemService) Info(ctx context.Context, detailed bool) (*Envelope, error) {
	path := "/api/system"
	if detailed {
		path = withQuery(path, url.Values{"v": {"2"}})
	}
	return s.conn.Get(ctx, path)
}

func (s *SystemService) IPs(ctx context.Context) (*Envelope, error) {
	return s.conn.Get(ctx, "/api/system/ips")
}

func (s *SystemService) Utilization(ctx context.Context) (*Envelope, error) {
	return s.conn.Get(ctx, "/api/system/utilization")
}

func (s *SystemService) DockerDiskUsage(ctx context.Context) (*Envelope, error) {
	return s.conn.Get(ctx, "/api/system/docker/disk")
}

func (s *SystemService) PruneDockerImages(ctx context.Context) (*Envelope, error) {
	return s.conn.Delete(ctx, "/api/system/docker/image/prune")
}
