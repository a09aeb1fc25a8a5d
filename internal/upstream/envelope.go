package upstream

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/leanmobile/leanbridge/internal/apperr"
)

// Request is an outbound JSON-RPC 2.0 envelope. ID stays raw so the
// passthrough endpoint echoes whatever the browser sent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
	Params  any             `json:"params"`
}

// NewRequest builds a request with a fresh unique id.
func NewRequest(method string, params any) Request {
	if params == nil {
		params = map[string]any{}
	}
	id, _ := json.Marshal(uuid.New().String())
	return Request{JSONRPC: "2.0", Method: method, ID: id, Params: params}
}

// Validate checks the fields a caller-supplied envelope must carry.
func (r Request) Validate() error {
	if r.JSONRPC != "2.0" {
		return apperr.New(apperr.KindValidation, r.Method, `jsonrpc must be "2.0"`)
	}
	if r.Method == "" {
		return apperr.New(apperr.KindValidation, "", "method is required")
	}
	return nil
}

// RPCError is the error member of a response envelope.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is an upstream JSON-RPC 2.0 response envelope. A well-formed
// response carries exactly one of Result/Error, but the upstream does not
// always hold itself to that.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// looksLikeEnvelope reports whether a parsed body resembles JSON-RPC at all.
// The optimistic-success override only applies to bodies that do.
func (r *Response) looksLikeEnvelope() bool {
	return r.JSONRPC != "" || r.Result != nil || r.Error != nil
}

// SyntheticError builds the envelope the proxy returns when the upstream
// produced nothing usable.
func SyntheticError(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
		ID:      id,
	}
}
