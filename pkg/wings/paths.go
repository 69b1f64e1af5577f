package wings

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// validUUID normalizes id or returns ErrInvalidUUID.
func validUUID(kind, id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidUUID, kind, id)
	}
	return u.String(), nil
}

// serverPath builds /api/servers/<uuid>[/<suffix>] after validating the id.
func serverPath(serverUUID string, suffix ...string) (string, error) {
	id, err := validUUID("server", serverUUID)
	if err != nil {
		return "", err
	}
	p := "/api/servers/" + id
	for _, s := range suffix {
		p += "/" + strings.Trim(s, "/")
	}
	return p, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
