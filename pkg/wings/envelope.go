package wings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Envelope is the normalized result of a node call. It never changes after
// construction; accessors hand out copies.
type Envelope struct {
	status  int
	payload any    // decoded JSON value, nil for raw payloads
	raw     []byte // body as received
	isRaw   bool
}

// NewEnvelope wraps structured data, e.g. for fakes in tests.
func NewEnvelope(status int, data map[string]any) *Envelope {
	if data == nil {
		data = map[string]any{}
	}
	raw, _ := json.Marshal(data)
	return &Envelope{status: status, payload: maps.Clone(data), raw: raw}
}

// NewRawEnvelope wraps an unstructured body.
func NewRawEnvelope(status int, body []byte) *Envelope {
	return &Envelope{status: status, raw: bytes.Clone(body), isRaw: true}
}

func emptyEnvelope(status int) *Envelope {
	return &Envelope{status: status, payload: map[string]any{}, raw: []byte{}}
}

// decodeEnvelope tries JSON first and keeps non-JSON bodies raw.
func decodeEnvelope(status int, body []byte) *Envelope {
	if len(bytes.TrimSpace(body)) == 0 {
		return emptyEnvelope(status)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil || v == nil {
		return NewRawEnvelope(status, body)
	}
	return &Envelope{status: status, payload: v, raw: bytes.Clone(body)}
}

// IsSuccessful reports a status in [200, 300).
func (e *Envelope) IsSuccessful() bool {
	return e.status >= 200 && e.status < 300
}

func (e *Envelope) StatusCode() int { return e.status }

// IsRaw reports whether the payload is unstructured bytes.
func (e *Envelope) IsRaw() bool { return e.isRaw }

// Raw returns the body bytes as received.
func (e *Envelope) Raw() []byte { return bytes.Clone(e.raw) }

// Text returns the body as a string.
func (e *Envelope) Text() string { return string(e.raw) }

// Data returns the payload when it is a JSON object, otherwise an empty map.
func (e *Envelope) Data() map[string]any {
	if m, ok := e.payload.(map[string]any); ok {
		return maps.Clone(m)
	}
	return map[string]any{}
}

// List returns the payload when it is a JSON array.
func (e *Envelope) List() ([]any, bool) {
	l, ok := e.payload.([]any)
	if !ok {
		return nil, false
	}
	return slices.Clone(l), true
}

// Get returns the top level field key, or def when it is absent or null.
func (e *Envelope) Get(key string, def any) any {
	m, ok := e.payload.(map[string]any)
	if !ok {
		return def
	}
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// Has reports whether key is present and non-null.
func (e *Envelope) Has(key string) bool {
	m, ok := e.payload.(map[string]any)
	if !ok {
		return false
	}
	v, ok := m[key]
	return ok && v != nil
}

// ErrorMessage returns the "error" field, then "message", then
// "Unknown error".
func (e *Envelope) ErrorMessage() string {
	for _, k := range []string{"error", "message"} {
		if v := e.Get(k, nil); v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return unknownError
}

// ToMap returns the payload as a map. Raw and non-object payloads are
// wrapped as {"content": ...}.
func (e *Envelope) ToMap() map[string]any {
	switch {
	case e.isRaw:
		return map[string]any{"content": string(e.raw)}
	case e.payload == nil:
		return map[string]any{}
	}
	if m, ok := e.payload.(map[string]any); ok {
		return maps.Clone(m)
	}
	return map[string]any{"content": e.payload}
}

// Decode unmarshals the body into target.
func (e *Envelope) Decode(target any) error {
	if len(e.raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.raw, target); err != nil {
		return fmt.Errorf("wings: decode response: %w", err)
	}
	return nil
}
