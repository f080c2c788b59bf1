package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelichko/taskdeck/backend/internal/auth/cleanup"
	authhttp "github.com/avelichko/taskdeck/backend/internal/auth/http"
	authrepo "github.com/avelichko/taskdeck/backend/internal/auth/repository"
	authservice "github.com/avelichko/taskdeck/backend/internal/auth/service"
	"github.com/avelichko/taskdeck/backend/internal/auth/token"
	"github.com/avelichko/taskdeck/backend/internal/board/guard"
	boardhttp "github.com/avelichko/taskdeck/backend/internal/board/http"
	boardrepo "github.com/avelichko/taskdeck/backend/internal/board/repository"
	boardservice "github.com/avelichko/taskdeck/backend/internal/board/service"
	"github.com/avelichko/taskdeck/backend/internal/board/stream"
	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/config"
	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	"github.com/avelichko/taskdeck/backend/internal/common/crypto"
	"github.com/avelichko/taskdeck/backend/internal/common/db"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/common/server"
	"github.com/avelichko/taskdeck/backend/internal/persistence"
	"github.com/avelichko/taskdeck/backend/internal/session"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "api", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	defer pool.Close()

	clk := clock.NewRealClock()
	factory := persistence.NewPoolFactory(pool, clk)
	errorHandler := commonhttp.NewErrorHandler(log, cfg.IsProduction())

	codec := token.NewCodec(cfg.JWTSecret, clk, cfg.AccessTokenTTL, crypto.NewUUIDGenerator())
	refreshTokens := authrepo.NewRefreshTokenRepository(pool)
	authSvc := authservice.NewAuthService(
		factory,
		refreshTokens,
		codec,
		&crypto.BcryptHasher{},
		crypto.NewRandomIDGenerator(),
		crypto.NewUUIDGenerator(),
		clk,
		cfg.RefreshTokenTTL,
		log,
	)

	hub := stream.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	boardSvc := boardservice.NewBoardService(factory, crypto.NewRandomIDGenerator(), hub, log)
	boardGuard := guard.New(boardrepo.NewMembershipRepository(pool), errorHandler)
	streamHandler := stream.NewHandler(hub, errorHandler, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler())
	mux.Handle("/metrics", promhttp.Handler())
	authhttp.NewHandler(authSvc, errorHandler).Register(mux)
	boardhttp.NewHandler(boardSvc, boardGuard, streamHandler.ServeWS, errorHandler).Register(mux)

	resolver := session.NewResolver(codec, log)
	limiter := commonhttp.NewRouteRateLimiter(clk)
	defer limiter.Stop()

	handler := commonhttp.BuildBaseHandler(log, limiter.Middleware(resolver.Middleware(mux)))

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := cleanup.NewSweeper(refreshTokens, clk, constants.RefreshTokenCleanupEvery, log)
	go sweeper.Run(sweepCtx)

	srv := server.NewServer(server.DefaultServerConfig(cfg.HTTPPort), handler)
	server.StartWithGracefulShutdownAndHooks(srv, log, "api", []server.ShutdownHook{
		func(ctx context.Context) error {
			stopSweep()
			hub.Stop()
			return nil
		},
	})
}
