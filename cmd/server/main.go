package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/config"
	"github.com/simplestore/storefront/app/database"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/router"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(&cfg.Database, zapLog, cfg.Log.GormLevel)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	zapLog.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		zapLog.Info("schema migrated")
	}

	var sessionStore session.Store
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		zapLog.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
		sessionStore = session.NewRedisStore(rdb, "")
	default:
		zapLog.Warn("using in-memory session store; sessions are lost on restart")
		sessionStore = session.NewMemoryStore()
	}

	sessions := session.NewManager(sessionStore, cfg.Session.Secret, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	}, zapLog)

	srv := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: router.New(router.Deps{
			Store:    models.NewStore(db),
			Sessions: sessions,
			Logger:   zapLog,
			Ping:     func(ctx context.Context) error { return database.Ping(ctx, db) },
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zapLog.Info("server stopped")
	return nil
}
