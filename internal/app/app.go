// Package app boots the nutrition backend: configuration, database,
// services, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/config"
	"github.com/calstars/calories-backend/internal/db"
	"github.com/calstars/calories-backend/internal/http/api"
	"github.com/calstars/calories-backend/internal/ingest"
	"github.com/calstars/calories-backend/internal/ratelimit"
	"github.com/calstars/calories-backend/internal/summary"
	"github.com/calstars/calories-backend/internal/telegram"
	"github.com/calstars/calories-backend/internal/timewindow"
	"github.com/calstars/calories-backend/internal/uploads"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and blocks
// until the context is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return err
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	files, errFiles := uploads.NewStore(settings.UploadDir)
	if errFiles != nil {
		return errFiles
	}

	if settings.BotToken == "" {
		log.Warn("bot token not set; initData verification and payments are unavailable")
	}
	if settings.OpenAIKey == "" {
		log.Warn("openai key not set; AI estimation will answer with fallbacks")
	}

	calc := timewindow.New(settings.TZOffsetHours)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, api.Deps{
		DB:        conn,
		Resolver:  auth.NewResolver(conn, settings.BotToken, settings.RequireAuth),
		Summary:   summary.NewService(conn, calc),
		Ingest:    ingest.NewStore(conn, calc),
		Files:     files,
		Estimator: ai.NewOpenAIEstimator(settings.OpenAIKey, settings.EstimateModel, settings.VisionModel),
		Limiter: ratelimit.NewManager(ratelimit.Config{
			LimitPerMinute: settings.AILimitPerMinute,
			RedisAddr:      settings.RedisAddr,
			RedisPassword:  settings.RedisPassword,
			RedisPrefix:    settings.RedisPrefix,
			RedisDB:        settings.RedisDB,
		}, nil, nil),
		Telegram:       telegram.NewClient(settings.BotToken),
		TZOffsetHours:  settings.TZOffsetHours,
		FrontendOrigin: settings.FrontendOrigin,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    srv.Addr,
			"dialect": db.DialectName(conn),
		}).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
