package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSequence_Array(t *testing.T) {
	raw := json.RawMessage(`[{"id":1},{"id":2},{"id":3}]`)
	seq := ToSequence(raw)
	assert.Len(t, seq, 3)
	assert.JSONEq(t, `{"id":1}`, string(seq[0]))
	assert.JSONEq(t, `{"id":3}`, string(seq[2]))
}

func TestToSequence_ObjectKeepsDocumentOrder(t *testing.T) {
	// Keys deliberately out of numeric order: document order must win.
	raw := json.RawMessage(`{"3":{"n":"a"},"0":{"n":"b"},"7":{"n":"c"}}`)
	seq := ToSequence(raw)
	assert.Len(t, seq, 3)
	assert.JSONEq(t, `{"n":"a"}`, string(seq[0]))
	assert.JSONEq(t, `{"n":"b"}`, string(seq[1]))
	assert.JSONEq(t, `{"n":"c"}`, string(seq[2]))
}

func TestToSequence_Degenerate(t *testing.T) {
	for _, raw := range []string{`null`, ``, `42`, `"text"`, `true`, `[broken`, `{"a":}`} {
		assert.Empty(t, ToSequence(json.RawMessage(raw)), "input %q", raw)
	}
}

func TestMembers_Keys(t *testing.T) {
	raw := json.RawMessage(`{"3":"Nowe","0":"Zrobione"}`)
	members := Members(raw)
	assert.Len(t, members, 2)
	assert.Equal(t, "3", members[0].Key)
	assert.Equal(t, "0", members[1].Key)

	arr := Members(json.RawMessage(`[1,2]`))
	assert.Len(t, arr, 2)
	assert.Empty(t, arr[0].Key)
}

func TestIsEmptySequence(t *testing.T) {
	assert.True(t, IsEmptySequence(json.RawMessage(`[]`)))
	assert.True(t, IsEmptySequence(json.RawMessage(`null`)))
	assert.True(t, IsEmptySequence(json.RawMessage(`{}`)))
	assert.False(t, IsEmptySequence(json.RawMessage(`[1]`)))
	assert.False(t, IsEmptySequence(json.RawMessage(`{"1":{}}`)))
}
