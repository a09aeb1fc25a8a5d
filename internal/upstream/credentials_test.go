package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutboundHeaders_PersonalKeyWins(t *testing.T) {
	h := OutboundHeaders(CredentialSource{PersonalKey: "personal"}, "global", false)
	assert.Equal(t, "personal", h.Get("x-api-key"))
}

func TestOutboundHeaders_GlobalFallback(t *testing.T) {
	h := OutboundHeaders(CredentialSource{}, "global", false)
	assert.Equal(t, "global", h.Get("x-api-key"))
}

func TestOutboundHeaders_NoCredentials(t *testing.T) {
	h := OutboundHeaders(CredentialSource{}, "", false)
	assert.Empty(t, h.Get("x-api-key"), "absence of credentials yields an empty header set, not a failure")
	assert.Empty(t, h.Get("Cookie"))
}

func TestOutboundHeaders_KeyOnlyModeDropsCookie(t *testing.T) {
	h := OutboundHeaders(CredentialSource{PersonalKey: "p", SessionCookie: "SESSID=abc"}, "g", false)
	assert.Empty(t, h.Get("Cookie"), "key-only mode must never smuggle the session cookie upstream")
}

func TestOutboundHeaders_ForwardingMode(t *testing.T) {
	h := OutboundHeaders(CredentialSource{SessionCookie: "SESSID=abc"}, "g", true)
	assert.Equal(t, "SESSID=abc", h.Get("Cookie"))
	assert.Equal(t, "g", h.Get("x-api-key"))
}

func TestOutboundHeaders_ForwardingModeEmptyCookie(t *testing.T) {
	h := OutboundHeaders(CredentialSource{}, "g", true)
	assert.Empty(t, h.Get("Cookie"))
}
