// Package server is the HTTP surface of the proxy: the auth bridge, the
// raw JSON-RPC passthrough and the typed mobile API.
package server

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/leanmobile/leanbridge/internal/config"
	"github.com/leanmobile/leanbridge/internal/health"
	"github.com/leanmobile/leanbridge/internal/leantime"
	"github.com/leanmobile/leanbridge/internal/metrics"
	"github.com/leanmobile/leanbridge/internal/push"
	"github.com/leanmobile/leanbridge/internal/requestid"
	"github.com/leanmobile/leanbridge/internal/rpc"
	"github.com/leanmobile/leanbridge/internal/session"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// Deps are the collaborators the server wires together.
type Deps struct {
	Config     *config.Config
	Upstream   *upstream.Client
	Invoker    *rpc.Invoker
	Service    *leantime.Service
	Sessions   session.Store
	Tokens     *session.TokenIssuer
	StaticKeys map[string]string // email -> personal API key
	PushReg    push.Registry
	PushSender push.Sender
	Checker    *health.Checker
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// Server is the Fiber application.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
}

// New creates and configures the server.
func New(deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(deps.Logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:    app,
		cfg:    deps.Config,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if s.cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
			AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
			AllowCredentials: true,
		}))
	}

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", c.Locals("request_id").(string)).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.Liveness)
	s.app.Get("/readyz", s.Readiness)

	if s.deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.deps.Metrics.Handler()))
	}

	auth := s.app.Group("/api/auth")
	auth.Post("/login", s.Login)
	auth.Get("/logout", s.Logout)
	auth.Get("/me", s.Me)

	s.app.Post("/api/jsonrpc", s.JSONRPC)

	v1 := s.app.Group("/api/v1", s.requireSession)
	v1.Get("/users", s.ListUsers)
	v1.Get("/projects", s.ListProjects)
	v1.Get("/projects/:id/tasks", s.ListProjectTasks)
	v1.Get("/projects/:id/milestones", s.ListMilestones)
	v1.Get("/projects/:id/updates", s.ListProjectUpdates)
	v1.Post("/projects/:id/updates", s.AddProjectUpdate)
	v1.Patch("/updates/:id", s.EditProjectUpdate)
	v1.Delete("/updates/:id", s.DeleteProjectUpdate)
	v1.Get("/statuslabels", s.ListStatusLabels)
	v1.Get("/tasks", s.ListMyTasks)
	v1.Post("/tasks", s.AddTask)
	v1.Patch("/tasks/:id", s.UpdateTask)
	v1.Patch("/tasks/:id/status", s.ChangeTaskStatus)
	v1.Delete("/tasks/:id", s.DeleteTask)

	pushGroup := s.app.Group("/api/push", s.requireSession)
	pushGroup.Post("/subscribe", s.PushSubscribe)
	pushGroup.Delete("/subscribe", s.PushUnsubscribe)
	pushGroup.Get("/subscribe", s.PushSubscriptions)
	pushGroup.Post("/send", s.PushSend)
}

// Liveness handles GET /healthz.
func (s *Server) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (s *Server) Readiness(c *fiber.Ctx) error {
	results := s.deps.Checker.RunAll(c.Context())
	for _, st := range results {
		if st == health.StatusDown {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not_ready",
				"checks": results,
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready", "checks": results})
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}

// sessionKey is the Locals key the session middleware stores the record
// under.
const sessionKey = "session_record"

// requireSession loads and validates the session cookie; handlers below
// it can assume a live record in Locals.
func (s *Server) requireSession(c *fiber.Ctx) error {
	rec, err := s.sessionFromRequest(c)
	if err != nil {
		return problemResponse(c, fiber.StatusUnauthorized,
			"no_session", "Unauthorized", "No active session")
	}
	c.Locals(sessionKey, rec)
	return c.Next()
}

func (s *Server) sessionFromRequest(c *fiber.Ctx) (*session.Record, error) {
	cookie := c.Cookies(s.cfg.SessionCookieName)
	if cookie == "" {
		return nil, session.ErrNotFound
	}
	id, err := s.deps.Tokens.Verify(cookie)
	if err != nil {
		return nil, session.ErrNotFound
	}
	return s.deps.Sessions.Get(c.Context(), id)
}

func sessionRecord(c *fiber.Ctx) *session.Record {
	rec, _ := c.Locals(sessionKey).(*session.Record)
	return rec
}

// credentials maps a session record to the outbound credential source.
func credentials(rec *session.Record) upstream.CredentialSource {
	if rec == nil {
		return upstream.CredentialSource{}
	}
	return upstream.CredentialSource{
		PersonalKey:   rec.PersonalKey,
		SessionCookie: rec.UpstreamCookie,
		UserID:        rec.UserID,
	}
}

// RegisterHealthChecks wires the standard dependency checks.
func RegisterHealthChecks(checker *health.Checker, client *upstream.Client, store session.Store) {
	checker.Register("upstream", func(ctx context.Context) health.Status {
		if err := client.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		checker.Register("sessions", func(ctx context.Context) health.Status {
			if err := pinger.Ping(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
	}
}
