package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leanmobile/leanbridge/internal/config"
	"github.com/leanmobile/leanbridge/internal/health"
	"github.com/leanmobile/leanbridge/internal/leantime"
	"github.com/leanmobile/leanbridge/internal/metrics"
	"github.com/leanmobile/leanbridge/internal/push"
	"github.com/leanmobile/leanbridge/internal/rpc"
	"github.com/leanmobile/leanbridge/internal/server"
	"github.com/leanmobile/leanbridge/internal/session"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	probe, err := config.LoadProbe(cfg.ProbeFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load probe file")
	}

	staticKeys, err := cfg.ParseUserAPIKeys()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse USER_API_KEYS")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("upstream", cfg.UpstreamURL).
		Bool("redis", cfg.RedisEnabled()).
		Bool("push", cfg.PushEnabled()).
		Bool("forward_session", cfg.ForwardSessionCookie).
		Int("static_keys", len(staticKeys)).
		Msg("starting leanbridge")

	m := metrics.New()

	client := upstream.New(upstream.Options{
		BaseURL:        cfg.UpstreamURL,
		GlobalAPIKey:   cfg.GlobalAPIKey,
		ForwardSession: cfg.ForwardSessionCookie,
		Timeout:        cfg.UpstreamTimeout,
		Probe:          probe,
		Logger:         logger,
	})

	invoker := rpc.NewInvoker(client, rpc.Policy{
		MaxAttempts:    cfg.RetryMaxAttempts,
		BaseDelay:      cfg.RetryBaseDelay,
		RateLimitDelay: cfg.RetryRateLimitDelay,
	}, logger, m)

	service := leantime.New(invoker, probe, logger, m)

	// Session and push stores: Redis when configured, memory otherwise.
	var sessions session.Store
	var pushReg push.Registry
	if cfg.RedisEnabled() {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		sessions = redisStore

		opts, _ := redis.ParseURL(cfg.RedisURL)
		pushReg = push.NewRedisRegistry(redis.NewClient(opts))
		logger.Info().Msg("redis session store initialized")
	} else {
		sessions = session.NewMemoryStore()
		pushReg = push.NewMemoryRegistry()
		logger.Info().Msg("in-memory session store initialized (sessions reset on restart)")
	}
	defer sessions.Close()

	var sender push.Sender
	if cfg.PushEnabled() {
		sender = push.NewWebPushSender(cfg.VAPIDSubject, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, logger)
		logger.Info().Msg("web push sender initialized")
	}

	checker := health.NewChecker(logger)
	server.RegisterHealthChecks(checker, client, sessions)

	srv := server.New(server.Deps{
		Config:     cfg,
		Upstream:   client,
		Invoker:    invoker,
		Service:    service,
		Sessions:   sessions,
		Tokens:     session.NewTokenIssuer(cfg.SessionSecret),
		StaticKeys: staticKeys,
		PushReg:    pushReg,
		PushSender: sender,
		Checker:    checker,
		Metrics:    m,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("leanbridge stopped")
}
