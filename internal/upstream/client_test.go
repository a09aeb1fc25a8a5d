package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(Options{
		BaseURL:      server.URL,
		GlobalAPIKey: "global-key",
		Probe:        config.DefaultProbe(),
		Logger:       zerolog.Nop(),
	})
	return client, server
}

func TestCall_Result(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jsonrpc", r.URL.Path)
		assert.Equal(t, "global-key", r.Header.Get("x-api-key"))
		assert.Empty(t, r.Header.Get("Cookie"), "key-only mode never forwards the session cookie")

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "leantime.rpc.projects.getAll", req.Method)

		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": []int{1, 2}, "id": "x"})
	})

	result, err := client.Call(context.Background(), CredentialSource{SessionCookie: "SESSID=abc"}, "leantime.rpc.projects.getAll", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(result))
}

func TestCall_PersonalKeyWins(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "personal-key", r.Header.Get("x-api-key"))
		json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", Result: json.RawMessage(`[]`)})
	})

	_, err := client.Call(context.Background(), CredentialSource{PersonalKey: "personal-key"}, "m", nil)
	require.NoError(t, err)
}

func TestCall_HTMLBodyClassified(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("  <!DOCTYPE html><html><body>error</body></html>"))
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "m", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamShape, apperr.KindOf(err))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeHTMLBody, ae.Code)
}

func TestCall_HTMLOn500StaysFailure(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>fatal</html>"))
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "m", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamShape, apperr.KindOf(err), "the override never rescues HTML bodies")
}

func TestCall_InvalidJSON(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc": "2.0", "result": [truncated`))
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "m", nil)
	require.Error(t, err)

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeInvalidJSON, ae.Code)
}

func TestCall_OptimisticSuccessOverride(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": map[string]any{"id": 42}, "id": 1})
	})

	result, err := client.Call(context.Background(), CredentialSource{}, "leantime.rpc.tickets.addTicket", nil)
	require.NoError(t, err, "5xx with a valid envelope must read as success")
	assert.JSONEq(t, `{"id":42}`, string(result))
}

func TestDo_OverrideReportsStatus200(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "error": map[string]any{"code": -32000, "message": "boom"}, "id": 1})
	})

	outcome, err := client.Do(context.Background(), CredentialSource{}, NewRequest("m", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, outcome.Status, "override applies whether the envelope carries result or error")
	assert.True(t, outcome.Overridden)
	require.NotNil(t, outcome.Envelope.Error)
	assert.Equal(t, "boom", outcome.Envelope.Error.Message)
}

func TestDo_Non500NonEnvelopeJSON(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"some":"thing"}`))
	})

	_, err := client.Do(context.Background(), CredentialSource{}, NewRequest("m", nil))
	require.Error(t, err, "5xx with JSON that is not an envelope is not rescued")
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestCall_RateLimited(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "m", nil)
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
}

func TestCall_RPCError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": -32601, "message": "Method not found"},
			"id":      1,
		})
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "leantime.rpc.nope", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamRPC, apperr.KindOf(err))
	assert.True(t, apperr.IsMethodAmbiguity(err))
	assert.Contains(t, err.Error(), "Method not found")
}

func TestCall_TransportFailure(t *testing.T) {
	client := New(Options{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Probe:   config.DefaultProbe(),
		Logger:  zerolog.Nop(),
	})

	_, err := client.Call(context.Background(), CredentialSource{}, "m", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestCall_ForwardSessionMode(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", Result: json.RawMessage(`[]`)})
	}))
	defer server.Close()

	client := New(Options{
		BaseURL:        server.URL,
		GlobalAPIKey:   "global-key",
		ForwardSession: true,
		Probe:          config.DefaultProbe(),
		Logger:         zerolog.Nop(),
	})

	_, err := client.Call(context.Background(), CredentialSource{SessionCookie: "SESSID=xyz"}, "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "SESSID=xyz", gotCookie)
}

func TestRequestValidate(t *testing.T) {
	assert.Error(t, Request{JSONRPC: "1.0", Method: "m"}.Validate())
	assert.Error(t, Request{JSONRPC: "2.0"}.Validate())
	assert.NoError(t, Request{JSONRPC: "2.0", Method: "m"}.Validate())
}
