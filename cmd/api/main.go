package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	httpx "github.com/geocoder89/userhub/internal/http"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/geocoder89/userhub/internal/service"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OtelEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "userhub",
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}()
	}

	prom := observability.NewProm()

	// redis backs both the user cache and the auth rate limiter when set
	var (
		backend     cache.Backend
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL(),
			Prefix:   "userhub:",
		})
		pctx, cancel := config.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer rc.Close()
		backend = rc
		redisClient = rc.Raw()
	} else if cfg.CacheLocal && cfg.CacheTTLSeconds > 0 {
		backend = cache.NewLocal(cfg.CacheTTL())
	}

	store, closeStore, err := repo.Open(ctx, cfg, repo.Options{
		Observer:     prom,
		Cache:        backend,
		CacheMetrics: prom,
		Log:          log,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}
	tokens := auth.NewManager(secret, cfg.JWTTTL())

	users := service.NewUserService(store, log)
	authSvc := service.NewAuthService(store, security.NewHasher(bcrypt.DefaultCost), tokens, log)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var limiterClient redis.UniversalClient
	if redisClient != nil {
		limiterClient = redisClient
	}
	authLimiter, err := middlewares.NewRateLimiter("auth", cfg.AuthRateLimitPerMinute, time.Minute, limiterClient, log)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	writeLimiter, err := middlewares.NewRateLimiter("write", cfg.WriteRateLimitPerMinute, time.Minute, limiterClient, log)
	if err != nil {
		return fmt.Errorf("write rate limiter: %w", err)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:            log,
		Users:          users,
		Auth:           authSvc,
		Tokens:         tokens,
		Ping:           store.Ping,
		Prom:           prom,
		AuthLimiter:    authLimiter,
		WriteLimiter:   writeLimiter,
		Env:            cfg.Env,
		CookieMaxAge:   cfg.CookieMaxAge(),
		SecureCookies:  cfg.SecureCookies(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Tracing:        cfg.OtelEnabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
