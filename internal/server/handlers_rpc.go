package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/session"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// JSONRPC handles POST /api/jsonrpc: the raw passthrough the mobile
// client's generic RPC layer talks to. The caller's envelope goes up
// as-is (with credentials injected); the upstream's classified outcome
// comes back with its effective status mirrored. When the upstream
// produced nothing usable, the browser still gets a JSON-RPC envelope —
// a synthetic error carrying the shape-classification code — so the
// client never has to parse HTML or guess.
func (s *Server) JSONRPC(c *fiber.Ctx) error {
	var req upstream.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(upstream.SyntheticError(nil, -32700, "Parse error: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(upstream.SyntheticError(req.ID, -32600, err.Error()))
	}

	// A session is optional here: without one the call rides the global
	// API key alone, which is how pre-login metadata fetches work.
	rec, err := s.sessionFromRequest(c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Debug().Err(err).Msg("session lookup failed for passthrough call")
	}

	outcome, err := s.deps.Invoker.Do(c.Context(), credentials(rec), req)
	if err != nil {
		return s.syntheticFailure(c, req, err)
	}
	return c.Status(outcome.Status).JSON(outcome.Envelope)
}

// syntheticFailure renders a typed upstream failure as a JSON-RPC error
// envelope under the HTTP status the error kind maps to.
func (s *Server) syntheticFailure(c *fiber.Ctx, req upstream.Request, err error) error {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeTransport
	message := "Upstream call failed"

	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Code != 0 {
			code = ae.Code
		}
		message = ae.Message
	}

	s.logger.Warn().
		Str("method", req.Method).
		Int("status", status).
		Int("code", code).
		Msg("passthrough call failed")
	return c.Status(status).JSON(upstream.SyntheticError(req.ID, code, message))
}
