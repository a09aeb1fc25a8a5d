package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := RateLimited("tickets.getAll")
	assert.ErrorIs(t, err, ErrRateLimited)

	wrapped := fmt.Errorf("call failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrRateLimited)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUpstreamShape, KindOf(Shape("m", CodeHTMLBody, "html body")))
	assert.Equal(t, KindUpstreamRPC, KindOf(RPC("m", -32601, "method not found")))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(RateLimited("m")))
	assert.False(t, IsRetryable(RPC("m", -32601, "method not found")))
	assert.False(t, IsRetryable(Transport("m", errors.New("dial tcp: refused"))))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsMethodAmbiguity(t *testing.T) {
	assert.True(t, IsMethodAmbiguity(RPC("m", -32601, "method not found")))
	assert.False(t, IsMethodAmbiguity(Shape("m", CodeHTMLBody, "html")))
	assert.False(t, IsMethodAmbiguity(RateLimited("m")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(New(KindValidation, "", "missing email")))
	assert.Equal(t, 401, HTTPStatus(ErrNoSession))
	assert.Equal(t, 429, HTTPStatus(RateLimited("m")))
	assert.Equal(t, 502, HTTPStatus(Shape("m", CodeInvalidJSON, "bad json")))
	assert.Equal(t, 500, HTTPStatus(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "tickets.getAll: boom", New(KindTransport, "tickets.getAll", "boom").Error())
	assert.Equal(t, "boom", New(KindTransport, "", "boom").Error())
}
