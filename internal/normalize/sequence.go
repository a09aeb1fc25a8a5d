// Package normalize converts the upstream's heterogeneous result shapes into
// uniform ordered sequences and display-ready values. The upstream returns
// the same collection either as a JSON array or as an object keyed by id, and
// dates as naive local-looking strings with an all-zero sentinel for "unset".
package normalize

import (
	"bytes"
	"encoding/json"
)

// Member is one entry of an object-shaped result, with its key preserved.
// For array-shaped results Key is empty.
type Member struct {
	Key   string
	Value json.RawMessage
}

// ToSequence flattens the object-vs-array duality into an ordered slice.
// Arrays pass through; object values come back in document order (the order
// the upstream serialized them in, which is what its own UI relies on);
// null, primitives and malformed input yield an empty slice. Never panics.
func ToSequence(raw json.RawMessage) []json.RawMessage {
	members := Members(raw)
	out := make([]json.RawMessage, 0, len(members))
	for _, m := range members {
		out = append(out, m.Value)
	}
	return out
}

// Members is ToSequence with object keys preserved, for callers that need
// the id a value was keyed by (status-label codes).
func Members(raw json.RawMessage) []Member {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		members := make([]Member, 0, len(items))
		for _, it := range items {
			members = append(members, Member{Value: it})
		}
		return members
	case '{':
		return objectMembers(trimmed)
	default:
		return nil
	}
}

// objectMembers walks the object token-by-token so key order survives;
// decoding into a map would shuffle it.
func objectMembers(raw []byte) []Member {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil
	}

	var members []Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		members = append(members, Member{Key: key, Value: value})
	}
	return members
}

// IsEmptySequence reports whether a result normalizes to zero entries, which
// the task fallback chain treats as "try the next candidate".
func IsEmptySequence(raw json.RawMessage) bool {
	return len(ToSequence(raw)) == 0
}
