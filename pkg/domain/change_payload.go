package domain

import "encoding/json"

// ChangePayload carries the JSON snapshot of an entity captured on one side of
// a recorded change. The zero value means no snapshot was captured, which is
// how creates (no before) and deletes (no after) are represented.
type ChangePayload struct {
	raw json.RawMessage
}

// NewChangePayloadFromValue marshals a typed value into a payload snapshot.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return ChangePayload{raw: raw}, nil
}

// Defined reports whether a snapshot was captured.
func (p ChangePayload) Defined() bool {
	return len(p.raw) > 0
}

// Raw returns a copy of the snapshot bytes, or nil when none were captured.
func (p ChangePayload) Raw() json.RawMessage {
	if len(p.raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(p.raw))
	copy(out, p.raw)
	return out
}

// DecodePayload unmarshals a payload snapshot into a value of type T. The
// second return is false when no snapshot was captured or it does not decode.
func DecodePayload[T any](p ChangePayload) (T, bool) {
	var out T
	if len(p.raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(p.raw, &out); err != nil {
		return out, false
	}
	return out, true
}
