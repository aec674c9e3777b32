// Command cc-server starts the CyberCompanion gRPC server.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/cyber-companion/internal/api"
	"github.com/and161185/cyber-companion/internal/breach"
	"github.com/and161185/cyber-companion/internal/config"
	"github.com/and161185/cyber-companion/internal/limiter"
	"github.com/and161185/cyber-companion/internal/migrate"
	"github.com/and161185/cyber-companion/internal/repository/postgres"
	grpcserver "github.com/and161185/cyber-companion/internal/server/grpc"
	"github.com/and161185/cyber-companion/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves gRPC until SIGINT/SIGTERM.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("breachProvider", cfg.BreachProvider),
	)

	opts := []grpc.ServerOption{}
	if cfg.Insecure {
		logger.Warn("TLS disabled")
	} else {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}

	provider, err := breach.New(cfg.BreachProvider)
	if err != nil {
		logger.Fatal("breach provider", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applied, err := migrate.Up(ctx, cfg.DSN, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", applied))

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	users := postgres.NewUserRepo(db)
	profiles := postgres.NewProfileRepo(db)
	actions := postgres.NewActionRepo(db)
	checks := postgres.NewCheckRepo(db)
	pets := postgres.NewPetRepo(db)

	lim := limiter.NewPG(pool, cfg.LimiterWindow.Duration, cfg.LimiterMaxHits, cfg.LimiterBlockFor.Duration)

	// Services
	petSvc := service.NewPetService(pets, actions, logger.Named("pet"))
	svc := grpcserver.Services{
		Accounts: service.NewAccountService(users, profiles, petSvc, logger.Named("account")),
		Security: service.NewSecurityService(service.SecurityDeps{
			Profiles:  profiles,
			Actions:   actions,
			Checks:    checks,
			Pets:      petSvc,
			Provider:  provider,
			Limiter:   lim,
			Freshness: cfg.BreachFreshness.Duration,
			Log:       logger.Named("security"),
		}),
		Pets:   petSvc,
		Scores: service.NewScoreService(profiles, actions, checks, petSvc, logger.Named("score")),
	}

	// gRPC server with interceptors
	opts = append(opts, grpc.ChainUnaryInterceptor(
		grpcserver.RecoverUnary(logger),
		grpcserver.LoggingUnary(logger),
		grpcserver.AuthUnary([]byte(cfg.JWTKey), svc.Accounts),
	))
	s := grpc.NewServer(opts...)
	api.RegisterCompanionServer(s, grpcserver.New(svc))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Insecure))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.ShutdownTimeout.Duration):
			logger.Warn("graceful stop timed out")
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
