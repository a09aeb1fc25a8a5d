package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/leanmobile/leanbridge/internal/session"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// Login handles POST /api/auth/login: runs the upstream form login,
// resolves the account's identity and personal API key, and issues the
// browser session cookie.
//
// Wrong credentials answer 200 {ok:false} — the mobile client treats
// that as a normal outcome, not a failure mode.
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_credentials", "Bad Request", "Email and password are required")
	}

	outcome, err := s.deps.Upstream.FormLogin(c.Context(), req.Email, req.Password)
	if err != nil {
		s.deps.Metrics.RecordLogin("error")
		s.logger.Error().Err(err).Msg("login transport failure")
		return problemResponse(c, fiber.StatusBadGateway,
			"upstream_unreachable", "Bad Gateway", "Could not reach the upstream server")
	}

	resp := LoginResponse{OK: outcome.OK}
	if !s.cfg.IsProduction() {
		resp.Debug = loginDebug{
			Reason:       outcome.Reason,
			Status:       outcome.Status,
			Location:     outcome.Location,
			HiddenFields: outcome.HiddenFields,
		}
	}
	if !outcome.OK {
		s.deps.Metrics.RecordLogin("rejected")
		return c.JSON(resp)
	}

	user, personalKey := s.resolveIdentity(c, req.Email, outcome.SessionCookie)

	ttl := s.cfg.SessionTTL
	if req.Remember {
		ttl = s.cfg.SessionTTLRemember
	}
	now := time.Now()
	rec := &session.Record{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Firstname:      user.Firstname,
		Lastname:       user.Lastname,
		Username:       user.Username,
		Email:          user.Email,
		PersonalKey:    personalKey,
		UpstreamCookie: outcome.SessionCookie,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	if err := s.deps.Sessions.Save(c.Context(), rec); err != nil {
		s.deps.Metrics.RecordLogin("error")
		s.logger.Error().Err(err).Msg("session save failed")
		return problemResponse(c, fiber.StatusInternalServerError,
			"session_store", "Internal Server Error", "Could not persist the session")
	}

	token, err := s.deps.Tokens.Issue(rec.ID, rec.ExpiresAt)
	if err != nil {
		s.deps.Metrics.RecordLogin("error")
		return problemResponse(c, fiber.StatusInternalServerError,
			"token_issue", "Internal Server Error", "Could not issue the session token")
	}
	s.setSessionCookie(c, token, ttl)

	s.deps.Metrics.RecordLogin("success")
	s.deps.Metrics.SessionOpened()
	user.HasPersonalKey = personalKey != ""
	resp.User = &user
	s.logger.Info().
		Str("user_id", user.ID).
		Bool("personal_key", user.HasPersonalKey).
		Msg("login bridged")
	return c.JSON(resp)
}

// resolveIdentity looks the account up in the upstream user directory
// and the static key table. The static table wins; when it has no entry
// the account's own apiKey column from the directory is used. Lookup
// failures degrade to an email-only identity — a reachable board
// matters more than a complete profile.
func (s *Server) resolveIdentity(c *fiber.Ctx, email, upstreamCookie string) (SessionUser, string) {
	user := SessionUser{Email: strings.ToLower(email)}
	personalKey := s.deps.StaticKeys[user.Email]

	src := upstream.CredentialSource{PersonalKey: personalKey, SessionCookie: upstreamCookie}
	found, err := s.deps.Service.FindUserByEmail(c.Context(), src, email)
	if err != nil {
		s.logger.Warn().Err(err).Msg("user directory lookup failed, continuing with email identity")
		return user, personalKey
	}
	if found != nil {
		user.ID = found.ID.String()
		user.Firstname = found.Firstname
		user.Lastname = found.Lastname
		user.Username = found.Username
		if personalKey == "" {
			personalKey = found.APIKey.String()
		}
	}
	return user, personalKey
}

// Logout handles GET /api/auth/logout. The upstream logout is
// best-effort; locally the session always dies.
func (s *Server) Logout(c *fiber.Ctx) error {
	if rec, err := s.sessionFromRequest(c); err == nil {
		s.deps.Upstream.Logout(c.Context(), rec.UpstreamCookie)
		if err := s.deps.Sessions.Revoke(c.Context(), rec.ID); err != nil {
			s.logger.Warn().Err(err).Msg("session revoke failed")
		}
		s.deps.Metrics.SessionClosed()
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// Me handles GET /api/auth/me: live upstream identity when reachable,
// stored session identity otherwise.
func (s *Server) Me(c *fiber.Ctx) error {
	rec, err := s.sessionFromRequest(c)
	if err != nil {
		return problemResponse(c, fiber.StatusUnauthorized,
			"no_session", "Unauthorized", "No active session")
	}

	user := SessionUser{
		ID:             rec.UserID,
		Firstname:      rec.Firstname,
		Lastname:       rec.Lastname,
		Username:       rec.Username,
		Email:          rec.Email,
		HasPersonalKey: rec.HasPersonalKey(),
	}
	if live, err := s.deps.Service.CurrentUser(c.Context(), credentials(rec)); err == nil {
		user.ID = live.ID.String()
		user.Firstname = live.Firstname
		user.Lastname = live.Lastname
		if live.Username != "" {
			user.Username = live.Username
		}
	} else {
		s.logger.Debug().Err(err).Msg("live identity unavailable, serving stored session identity")
	}
	return c.JSON(fiber.Map{
		"ok":             true,
		"id":             user.ID,
		"firstname":      user.Firstname,
		"lastname":       user.Lastname,
		"username":       user.Username,
		"email":          user.Email,
		"hasPersonalKey": user.HasPersonalKey,
	})
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
