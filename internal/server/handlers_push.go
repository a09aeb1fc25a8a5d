package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/leanmobile/leanbridge/internal/push"
)

type subscribeRequest struct {
	Subscription push.Subscription `json:"subscription"`
}

type sendRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
}

// PushSubscribe handles POST /api/push/subscribe. The subscription is
// keyed by the session's user; one active subscription per user.
func (s *Server) PushSubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if !req.Subscription.Valid() {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_subscription", "Bad Request", "Subscription endpoint and keys are required")
	}
	rec := sessionRecord(c)
	err := s.deps.PushReg.Put(c.Context(), push.UserSubscription{
		UserID:       rec.UserID,
		Subscription: req.Subscription,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"registry", "Internal Server Error", "Could not store the subscription")
	}
	s.logger.Info().Str("user_id", rec.UserID).Msg("push subscription stored")
	return c.JSON(fiber.Map{"ok": true})
}

// PushUnsubscribe handles DELETE /api/push/subscribe.
func (s *Server) PushUnsubscribe(c *fiber.Ctx) error {
	rec := sessionRecord(c)
	if err := s.deps.PushReg.Delete(c.Context(), rec.UserID); err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"registry", "Internal Server Error", "Could not remove the subscription")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// PushSubscriptions handles GET /api/push/subscribe — a diagnostic
// listing of subscribed user ids.
func (s *Server) PushSubscriptions(c *fiber.Ctx) error {
	ids, err := s.deps.PushReg.UserIDs(c.Context())
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"registry", "Internal Server Error", "Could not list subscriptions")
	}
	return c.JSON(fiber.Map{"total": len(ids), "users": ids})
}

// PushSend handles POST /api/push/send: delivers a notification to the
// named user, or to the caller when no user is named.
func (s *Server) PushSend(c *fiber.Ctx) error {
	if s.deps.PushSender == nil {
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"push_disabled", "Service Unavailable", "Web push keys are not configured")
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	userID := req.UserID
	if userID == "" {
		userID = sessionRecord(c).UserID
	}

	sub, err := s.deps.PushReg.Get(c.Context(), userID)
	if errors.Is(err, push.ErrNotSubscribed) {
		return problemResponse(c, fiber.StatusNotFound,
			"not_subscribed", "Not Found", "No subscription for this user")
	}
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"registry", "Internal Server Error", "Could not load the subscription")
	}

	n := push.Notification{Title: req.Title, Body: req.Body, URL: req.URL}
	if err := s.deps.PushSender.Send(c.Context(), sub.Subscription, n); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("push delivery failed")
		return problemResponse(c, fiber.StatusBadGateway,
			"delivery_failed", "Bad Gateway", "Push delivery failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}
