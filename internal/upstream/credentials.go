package upstream

import "net/http"

// CredentialSource is what the proxy knows about the caller when issuing an
// upstream call: the personal API key and upstream session cookie captured at
// login, both possibly empty.
type CredentialSource struct {
	PersonalKey   string
	SessionCookie string // upstream cookie pairs, "name=value; name2=value2"
	UserID        string // upstream user id, for explicit identity params
}

// OutboundHeaders derives the authentication headers for one upstream call.
// A personal key wins over the global key; with neither, the call proceeds
// bare and the upstream's auth rejection is classified like any other error.
//
// Forwarding the session cookie next to an API key makes some upstream
// versions resolve auth against the cookie for reads and the key for writes,
// so forwardSession is a deployment-level choice, not a per-request one.
// Never fails.
func OutboundHeaders(src CredentialSource, globalKey string, forwardSession bool) http.Header {
	h := http.Header{}
	key := src.PersonalKey
	if key == "" {
		key = globalKey
	}
	if key != "" {
		h.Set("x-api-key", key)
	}
	if forwardSession && src.SessionCookie != "" {
		h.Set("Cookie", src.SessionCookie)
	}
	return h
}
